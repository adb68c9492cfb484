package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const isWindows = runtime.GOOS == "windows"

var noColor = os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" ||
	(!isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()))

func color(val string) string {
	if isWindows || noColor {
		return ""
	}
	return val
}

const (
	Reset       = "\033[0m"
	Red         = "\033[31m"
	Green       = "\033[32m"
	Magenta     = "\033[35m"
	BlueBold    = "\033[34;1m"
	MagentaBold = "\033[35;1m"
	RedBold     = "\033[31;1m"
	YellowBold  = "\033[33;1m"
	WhiteBold   = "\033[37;1m"
	CyanBold    = "\033[36;1m"
	Gray        = "\033[1;90m"
	Purple      = "\u001b[38;5;200m"
)

type levelStyle struct {
	name    string
	label   string
	message string
}

var levelStyles = map[LogLevel]levelStyle{
	LevelTrace: {"TRACE", CyanBold, Gray},
	LevelDebug: {"DEBUG", BlueBold, Green},
	LevelInfo:  {"INFO", YellowBold, WhiteBold},
	LevelWarn:  {"WARN", MagentaBold, Magenta},
	LevelError: {"ERROR", RedBold, Red},
}

type consoleLogger struct {
	prefixes     []string
	metadata     map[string]interface{}
	sink         Sink
	sinkMu       *sync.Mutex
	logLevel     LogLevel
	sinkLogLevel LogLevel
	child        Logger
}

var _ SinkLogger = (*consoleLogger)(nil)

func (c *consoleLogger) WithContext(ctx context.Context) Logger {
	clone := c.clone()
	if clone.child != nil {
		clone.child = clone.child.WithContext(ctx)
	}
	return clone
}

// WithPrefix will return a new logger with a prefix prepended to the message
func (c *consoleLogger) WithPrefix(prefix string) Logger {
	l := c.clone()
	if !slices.Contains(l.prefixes, prefix) {
		l.prefixes = append(l.prefixes, prefix)
	}
	if l.child != nil {
		l.child = l.child.WithPrefix(prefix)
	}
	return l
}

func (c *consoleLogger) clone() *consoleLogger {
	metadata := make(map[string]interface{}, len(c.metadata))
	for k, v := range c.metadata {
		metadata[k] = v
	}
	return &consoleLogger{
		prefixes:     slices.Clone(c.prefixes),
		metadata:     metadata,
		sink:         c.sink,
		sinkMu:       c.sinkMu,
		logLevel:     c.logLevel,
		sinkLogLevel: c.sinkLogLevel,
		child:        c.child,
	}
}

func (c *consoleLogger) SetSink(sink Sink, level LogLevel) {
	c.sink = sink
	c.sinkLogLevel = level
	if c.child != nil {
		if child, ok := c.child.(SinkLogger); ok {
			child.SetSink(sink, level)
		}
	}
}

func (c *consoleLogger) With(metadata map[string]interface{}) Logger {
	clone := c.clone()
	for k, v := range metadata {
		clone.metadata[k] = v
	}
	if clone.child != nil {
		clone.child = clone.child.With(metadata)
	}
	return clone
}

func (c *consoleLogger) format(level LogLevel, msg string, args ...interface{}) string {
	style := levelStyles[level]
	var prefix, suffix string
	if len(c.prefixes) > 0 {
		prefix = color(Purple) + strings.Join(c.prefixes, " ") + color(Reset) + " "
	}
	if len(c.metadata) > 0 {
		buf, _ := json.Marshal(c.metadata)
		suffix = " " + color(Gray) + string(buf) + color(Reset)
	}
	levelText := color(style.label) + fmt.Sprintf("[%-5s]", style.name) + color(Reset)
	message := color(style.message) + fmt.Sprintf(msg, args...) + color(Reset)
	return levelText + " " + prefix + message + suffix
}

func (c *consoleLogger) log(level LogLevel, msg string, args ...interface{}) {
	if level < c.logLevel && level < c.sinkLogLevel {
		return
	}
	out := c.format(level, msg, args...)
	if level >= c.logLevel {
		log.Println(out)
	}
	if c.sink != nil && level >= c.sinkLogLevel {
		ts := time.Now().Format(time.RFC3339Nano)
		c.sinkMu.Lock()
		c.sink.Write([]byte(ts + " " + ansiColorStripper.ReplaceAllString(out, "") + "\n"))
		c.sinkMu.Unlock()
	}
}

func (c *consoleLogger) Trace(msg string, args ...interface{}) {
	c.log(LevelTrace, msg, args...)
	if c.child != nil {
		c.child.Trace(msg, args...)
	}
}

func (c *consoleLogger) Debug(msg string, args ...interface{}) {
	c.log(LevelDebug, msg, args...)
	if c.child != nil {
		c.child.Debug(msg, args...)
	}
}

func (c *consoleLogger) Info(msg string, args ...interface{}) {
	c.log(LevelInfo, msg, args...)
	if c.child != nil {
		c.child.Info(msg, args...)
	}
}

func (c *consoleLogger) Warn(msg string, args ...interface{}) {
	c.log(LevelWarn, msg, args...)
	if c.child != nil {
		c.child.Warn(msg, args...)
	}
}

func (c *consoleLogger) Error(msg string, args ...interface{}) {
	c.log(LevelError, msg, args...)
	if c.child != nil {
		c.child.Error(msg, args...)
	}
}

func (c *consoleLogger) Fatal(msg string, args ...interface{}) {
	c.log(LevelError, msg, args...)
	if c.child != nil {
		c.child.Error(msg, args...) // Error because we want to log the error before exiting
	}
	os.Exit(1)
}

func (c *consoleLogger) Stack(next Logger) Logger {
	clone := c.clone()
	clone.child = next
	return clone
}

// NewConsoleLogger returns a new Logger instance which will log to the console.
// Without an explicit level the level comes from CASELAW_LOG_LEVEL.
func NewConsoleLogger(levels ...LogLevel) SinkLogger {
	level := GetLevelFromEnv()
	if len(levels) > 0 {
		level = levels[0]
	}
	return &consoleLogger{logLevel: level, sinkLogLevel: LevelNone, sinkMu: &sync.Mutex{}}
}
