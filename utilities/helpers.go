package utilities

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

// DoJSONRequest performs an HTTP request, retries on transient errors, and unmarshals a JSON response.
func DoJSONRequest(client *http.Client, req *http.Request, maxRetries int, retryDelay time.Duration, result interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		r := req
		if attempt > 0 && req.GetBody != nil {
			bodyReader, err := req.GetBody()
			if err != nil {
				return fmt.Errorf("retry %d: could not reset request body: %w", attempt, err)
			}
			r = req.Clone(req.Context())
			r.Body = bodyReader
		}

		resp, err := client.Do(r)
		if err != nil {
			lastErr = err
			time.Sleep(retryDelay)
			continue
		}

		if resp.StatusCode >= 500 && resp.StatusCode <= 599 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error %d %s", resp.StatusCode, resp.Status)
			time.Sleep(retryDelay)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("http %d: %s", resp.StatusCode, string(snippet))
		}

		decodeErr := json.NewDecoder(resp.Body).Decode(result)
		resp.Body.Close()
		if decodeErr != nil {
			return fmt.Errorf("failed to decode JSON response: %w", decodeErr)
		}
		return nil
	}
	return fmt.Errorf("all retries failed: %w", lastErr)
}

// LogDebug logs a message at Debug level.
func (l *Logger) LogDebug(format string, v ...interface{}) {
	if l.Level <= Debug {
		_ = l.Logger.Output(2, fmt.Sprintf("[DEBUG] "+format, v...))
	}
}

// LogError logs a message at Error level.
func (l *Logger) LogError(format string, v ...interface{}) {
	if l.Level <= Error {
		_ = l.Logger.Output(2, fmt.Sprintf("[ERROR] "+format, v...))
	}
}

// LogFatal logs a message at Fatal level and then calls os.Exit(1).
func (l *Logger) LogFatal(format string, v ...interface{}) {
	_ = l.Logger.Output(2, fmt.Sprintf("[FATAL] "+format, v...))
	os.Exit(1)
}

// LogInfo logs a message at Info level.
func (l *Logger) LogInfo(format string, v ...interface{}) {
	if l.Level <= Info {
		_ = l.Logger.Output(2, fmt.Sprintf("[INFO] "+format, v...))
	}
}

// LogWarn logs a message at Warn level.
func (l *Logger) LogWarn(format string, v ...interface{}) {
	if l.Level <= Warn {
		_ = l.Logger.Output(2, fmt.Sprintf("[WARN] "+format, v...))
	}
}

// NewLogger creates a new Logger instance.
func NewLogger(level LogLevel) *Logger {
	return &Logger{
		Level:  level,
		Logger: log.New(os.Stdout, "[Trader] ", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// ParseLogLevel converts a string log level to the LogLevel type.
func ParseLogLevel(levelStr string) (LogLevel, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return Debug, nil
	case "info":
		return Info, nil
	case "warn":
		return Warn, nil
	case "error":
		return Error, nil
	case "fatal":
		return Fatal, nil
	default:
		return Info, fmt.Errorf("invalid log level string: %s", levelStr)
	}
}

// SetLogLevel updates the logging level of the logger.
func (l *Logger) SetLogLevel(level LogLevel) {
	l.Level = level
}

// SortBarsByTimestamp sorts a slice of OHLCVBar by ascending Timestamp.
func SortBarsByTimestamp(bars []OHLCVBar) {
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp < bars[j].Timestamp
	})
}
