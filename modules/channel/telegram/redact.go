package telegram

import (
	"errors"
	"net/url"
)

// redactURLError drops the request URL, which embeds the bot token, from
// transport errors.
func redactURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return &url.Error{Op: uerr.Op, URL: "<redacted>", Err: uerr.Err}
	}
	return err
}
