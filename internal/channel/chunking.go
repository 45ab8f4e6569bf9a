package channel

import (
	"strings"
	"unicode/utf16"

	"github.com/flemzord/tgrelay/pkg/message"
)

// TelegramMaxLength is the Bot API limit for one message, in UTF-16 code
// units.
const TelegramMaxLength = 4096

// ChunkConfig controls how outbound messages are split when they exceed
// a platform's maximum message length.
type ChunkConfig struct {
	// MaxLength is the maximum length per chunk in UTF-16 code units.
	// A value <= 0 means no splitting.
	MaxLength int

	// PreserveBlocks avoids splitting inside fenced code blocks (``` ... ```)
	// as long as the block fits within MaxLength.
	PreserveBlocks bool
}

// SplitMessage splits an outbound message into messages that each respect
// cfg.MaxLength. Only the first chunk keeps ReplyToID. If the message
// already fits, a single-element slice is returned.
func SplitMessage(msg message.OutboundMessage, cfg ChunkConfig) []message.OutboundMessage {
	if cfg.MaxLength <= 0 || textLen(msg.Text) <= cfg.MaxLength {
		return []message.OutboundMessage{msg}
	}

	chunks := SplitText(msg.Text, cfg)
	result := make([]message.OutboundMessage, 0, len(chunks))
	for i, chunk := range chunks {
		out := msg
		out.Text = chunk
		if i > 0 {
			out.ReplyToID = ""
		}
		result = append(result, out)
	}
	return result
}

// SplitText breaks text into chunks of at most cfg.MaxLength, preferring
// line boundaries.
func SplitText(text string, cfg ChunkConfig) []string {
	if cfg.MaxLength <= 0 || textLen(text) <= cfg.MaxLength {
		return []string{text}
	}

	lines := strings.Split(text, "\n")

	var chunks []string
	var current strings.Builder
	currentLen := 0
	inCodeBlock := false

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
			current.Reset()
			currentLen = 0
		}
	}

	for i, line := range lines {
		lineLen := textLen(line) + 1

		isFence := strings.HasPrefix(strings.TrimSpace(line), "```")
		if isFence && !inCodeBlock && cfg.PreserveBlocks {
			// Start a fresh chunk when the whole block fits on its own.
			blockLen := fencedBlockLen(lines[i:])
			if currentLen+blockLen > cfg.MaxLength && blockLen <= cfg.MaxLength+1 {
				flush()
			}
		}
		if isFence {
			inCodeBlock = !inCodeBlock
		}

		if currentLen+lineLen > cfg.MaxLength {
			flush()

			if lineLen > cfg.MaxLength {
				chunks = append(chunks, forceSplit(line, cfg.MaxLength)...)
				continue
			}
		}

		current.WriteString(line + "\n")
		currentLen += lineLen
	}
	flush()

	return chunks
}

// fencedBlockLen returns the length of the fenced block opening at
// lines[0], newlines included. An unterminated block runs to the end.
func fencedBlockLen(lines []string) int {
	n := 0
	for i, line := range lines {
		n += textLen(line) + 1
		if i > 0 && strings.HasPrefix(strings.TrimSpace(line), "```") {
			break
		}
	}
	return n
}

// forceSplit breaks a single long line into pieces of at most maxLen
// UTF-16 code units without cutting a rune.
func forceSplit(line string, maxLen int) []string {
	var parts []string
	var b strings.Builder
	n := 0
	for _, r := range line {
		rl := utf16.RuneLen(r)
		if rl < 0 {
			rl = 1
		}
		if n+rl > maxLen && n > 0 {
			parts = append(parts, b.String())
			b.Reset()
			n = 0
		}
		b.WriteRune(r)
		n += rl
	}
	if n > 0 {
		parts = append(parts, b.String())
	}
	return parts
}

// textLen returns the length of s in UTF-16 code units, the unit Telegram
// uses for message limits.
func textLen(s string) int {
	n := 0
	for _, r := range s {
		rl := utf16.RuneLen(r)
		if rl < 0 {
			rl = 1
		}
		n += rl
	}
	return n
}
