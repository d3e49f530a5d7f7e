/**
 * Copyright (c) 2022, Xerra Earth Observation Institute
 * See LICENSE.TXT in the root directory of this source tree.
 */

package sink

import "github.com/sirupsen/logrus"

// Logrus adapts a *logrus.Logger to Sink, the way the sample CLI logs dial
// attempts and errors straight through logrus.
type Logrus struct {
	Log *logrus.Logger
}

// NewLogrus wraps a logger, falling back to logrus.StandardLogger() if nil.
func NewLogrus(log *logrus.Logger) *Logrus {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Logrus{Log: log}
}

func (s *Logrus) Debug(format string, args ...any) {
	s.Log.Debugf(format, args...)
}

func (s *Logrus) Trace(format string, args ...any) {
	s.Log.Tracef(format, args...)
}

func (s *Logrus) Warning(format string, args ...any) {
	s.Log.Warnf(format, args...)
}

func (s *Logrus) Error(format string, args ...any) {
	s.Log.Errorf(format, args...)
}
