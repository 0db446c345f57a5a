// backend/src/parsers/parser.go
package parsers

import (
	"fmt"
	"io"
	"strings"

	"github.com/username/tradevisor/backend/src/models"
	"github.com/username/tradevisor/backend/src/parsers/zerodha"
)

// Parser converts one uploaded tradebook file into normalized execution records.
type Parser interface {
	Parse(file io.Reader) (*models.ParseResult, error)
}

// GetParser returns the parser registered for the given broker source.
func GetParser(source string) (Parser, error) {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "", "zerodha":
		return zerodha.NewParser(), nil
	default:
		return nil, fmt.Errorf("unsupported tradebook source: %q", source)
	}
}
