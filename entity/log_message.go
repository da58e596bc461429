package entity

import "time"

// LogMessage is one structured log record mirrored into the payment log
// collection when a database is configured.
type LogMessage struct {
	Time      time.Time `json:"time" bson:"time"`
	Level     string    `json:"level" bson:"level"`
	Component string    `json:"component" bson:"component"`
	Text      string    `json:"text" bson:"text"`
	Error     string    `json:"error,omitempty" bson:"error,omitempty"`
}

func (l *LogMessage) DataType() string {
	return "log_message"
}
