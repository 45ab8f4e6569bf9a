// Package telegram implements the Telegram Bot API channel for tgrelay.
//
// It bridges Telegram updates and the platform-agnostic message model:
//
//   - Inbound text messages become message.InboundMessage with the chat id
//     as conversation id; updates without a chat or text are passed on
//     with those fields absent and dropped by the relay
//   - Outbound replies are split at the 4096-character limit via
//     channel.SplitMessage and sent as plain text
//   - Two delivery modes: long-polling (default) and webhook through the
//     gateway dispatcher, verified with Telegram's secret-token header
//   - Typing indicators via sendChatAction
//
// The module registers itself as "channel.telegram" via init(). It talks
// to the Bot API with net/http and encoding/json.
package telegram
