package logger

import (
	"bytes"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/suite"
)

type LoggerTest struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTest))
}

func redirectLogsTo(buf *bytes.Buffer, format string, level Severity) {
	defaultLoggerFactory.format = format
	defaultLoggerFactory.level.Set(level.slogLevel())
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(buf, defaultLoggerFactory.level, ""))
}

func (s *LoggerTest) TestTextFormatAtInfoIncludesInfoAndAbove() {
	var buf bytes.Buffer
	redirectLogsTo(&buf, "text", INFO)

	Debugf("should not appear")
	s.Empty(buf.String())

	Infof("hello %s", "world")
	s.Regexp(regexp.MustCompile(`severity=INFO message="hello world"`), buf.String())
}

func (s *LoggerTest) TestJSONFormatEmitsSeverityAndMessage() {
	var buf bytes.Buffer
	redirectLogsTo(&buf, "json", TRACE)

	Warnf("disk nearly full")

	s.Contains(buf.String(), `"severity":"WARNING"`)
	s.Contains(buf.String(), `"message":"disk nearly full"`)
}

func (s *LoggerTest) TestLevelFiltersLowerSeverities() {
	var buf bytes.Buffer
	redirectLogsTo(&buf, "text", ERROR)

	Warnf("warn should not appear")
	s.Empty(buf.String())

	Errorf("error should appear")
	s.Contains(buf.String(), "severity=ERROR")
}
