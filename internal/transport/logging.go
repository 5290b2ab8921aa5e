// SPDX-License-Identifier: MIT
package transport

import (
	applog "github.com/Fjollete/PichMatcher/internal/log"
)

// LoggingTransport writes every payload to the process log at debug
// level. It serves as the sink when no downstream consumer is wired up.
type LoggingTransport struct{}

var _ Transport = (*LoggingTransport)(nil)

// NewLoggingTransport returns the logging sink.
func NewLoggingTransport() *LoggingTransport {
	applog.Debug("Transport: using logging sink")
	return &LoggingTransport{}
}

// Send logs the payload and reports success.
func (lt *LoggingTransport) Send(data any) error {
	applog.Debugf("Transport: %+v", data)
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	return nil
}
