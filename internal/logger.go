package internal

import (
	"log"
	"time"

	"epaybg/entity"
	"epaybg/services"
)

// Logger writes component-tagged messages to the process log and, when a
// database is configured, mirrors them into the payment log collection.
type Logger struct {
	component string
	debug     bool
	database  services.Database
}

// NewLogger creates a log handler for one component. A nil database is
// fine; records then go to stdout only.
func NewLogger(component string, debug bool, database services.Database) *Logger {
	return &Logger{
		component: component,
		debug:     debug,
		database:  database,
	}
}

func (l *Logger) Debug(message string) {
	if !l.debug {
		return
	}
	l.write("DEBUG", message, nil)
}

func (l *Logger) Info(message string) {
	l.write("INFO", message, nil)
}

func (l *Logger) Warn(message string) {
	l.write("WARN", message, nil)
}

func (l *Logger) Error(message string, err error) {
	l.write("ERROR", message, err)
}

func (l *Logger) write(level, message string, err error) {
	if err != nil {
		log.Printf("%s | %s | %s; %v", l.component, level, message, err)
	} else {
		log.Printf("%s | %s | %s", l.component, level, message)
	}
	if l.database == nil {
		return
	}
	record := &entity.LogMessage{
		Time:      time.Now(),
		Level:     level,
		Component: l.component,
		Text:      message,
	}
	if err != nil {
		record.Error = err.Error()
	}
	if dbErr := l.database.WriteLogMessage(record); dbErr != nil {
		log.Printf("%s | ERROR | write log message; %v", l.component, dbErr)
	}
}
