package logger

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Logger writes categorised, colour-coded log lines to stdout and, when
// LOG_FILE is set, mirrors them uncoloured into that file.
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	debug   bool
	infoC   *color.Color
	warnC   *color.Color
	errorC  *color.Color
	debugC  *color.Color
	fieldC  *color.Color
	domainC *color.Color
}

func NewLogger() *Logger {
	l := &Logger{
		debug:   os.Getenv("LOG_DEBUG") == "true",
		infoC:   color.New(color.FgGreen),
		warnC:   color.New(color.FgYellow),
		errorC:  color.New(color.FgRed, color.Bold),
		debugC:  color.New(color.FgHiBlack),
		fieldC:  color.New(color.FgCyan),
		domainC: color.New(color.FgMagenta),
	}

	if path := os.Getenv("LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err == nil {
			l.file = f
		}
	}

	return l
}

func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

func (l *Logger) write(level string, c *color.Color, category, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Printf("%s %s %s %s\n", ts, c.Sprintf("[%s]", level), l.fieldC.Sprintf("[%s]", category), msg)

	if l.file != nil {
		fmt.Fprintf(l.file, "%s [%s] [%s] %s\n", ts, level, category, msg)
	}
}

func (l *Logger) Info(category, msg string)  { l.write("INFO", l.infoC, category, msg) }
func (l *Logger) Warn(category, msg string)  { l.write("WARN", l.warnC, category, msg) }
func (l *Logger) Error(category, msg string) { l.write("ERROR", l.errorC, category, msg) }

func (l *Logger) Debug(category, msg string) {
	if !l.debug {
		return
	}
	l.write("DEBUG", l.debugC, category, msg)
}

func (l *Logger) Fatal(category, msg string) {
	l.write("FATAL", l.errorC, category, msg)
	l.Close()
	os.Exit(1)
}

// Domain helpers keep the call sites short and the categories consistent.

func (l *Logger) LogPayment(action, paymentID, msg string) {
	l.write("INFO", l.domainC, "PAYMENT", fmt.Sprintf("%s [%s] %s", action, paymentID, msg))
}

func (l *Logger) LogWebhook(action, sessionID, msg string) {
	l.write("INFO", l.domainC, "WEBHOOK", fmt.Sprintf("%s [%s] %s", action, sessionID, msg))
}

func (l *Logger) LogDatabase(action, table, msg string) {
	l.Debug("DATABASE", fmt.Sprintf("%s [%s] %s", action, table, msg))
}

func (l *Logger) LogKafka(action, topic, msg string) {
	l.write("INFO", l.domainC, "KAFKA", fmt.Sprintf("%s [%s] %s", action, topic, msg))
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.write("INFO", l.infoC, "API", fmt.Sprintf("%s %s - %s (%s)", method, path, status, duration))
}

func (l *Logger) LogProcess(stage, msg string) {
	l.write("INFO", l.infoC, stage, msg)
}

func (l *Logger) LogSecurity(event, msg string) {
	l.write("WARN", l.warnC, "SECURITY", fmt.Sprintf("%s: %s", event, msg))
}
