package notifier

import (
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Notifier delivers a rendered notification. Email or chat senders can
// replace the console one.
type Notifier interface {
	Notify(subject, message string) error
}

// ConsoleNotifier writes notifications to the service log.
type ConsoleNotifier struct {
	log *zap.Logger
}

func NewConsole(log *zap.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{log: log}
}

func (c *ConsoleNotifier) Notify(subject, message string) error {
	c.log.Info("notification", zap.String("subject", subject), zap.String("message", message))
	return nil
}

// ISO 4217 currencies without minor units
var zeroDecimal = map[string]bool{"JPY": true, "KRW": true, "VND": true, "CLP": true}

// FormatAmount renders minor units in major units, e.g. 49900 INR as
// "499.00 INR".
func FormatAmount(minor int64, currency string) string {
	cur := strings.ToUpper(currency)
	if zeroDecimal[cur] {
		return decimal.NewFromInt(minor).String() + " " + cur
	}
	return decimal.New(minor, -2).StringFixed(2) + " " + cur
}
