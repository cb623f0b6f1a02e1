package display

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Service provides centralized formatting and output management
type Service interface {
	PrintHeader(title string)
	Success(message string)
	Warning(message string)
	Error(message string)
	Info(message string)
	Printf(format string, args ...interface{})
	SetOutput(writer io.Writer)
	Colors() ColorSystem
}

// service implements the Service interface
type service struct {
	colors ColorSystem
	out    io.Writer
}

// NewService creates a display service writing to stdout
func NewService(colorEnabled bool) Service {
	return &service{
		colors: NewColorSystem(colorEnabled),
		out:    os.Stdout,
	}
}

// PrintHeader prints a section header with an underline
func (s *service) PrintHeader(title string) {
	fmt.Fprintln(s.out, s.colors.Colorize(title, ColorBrightBlue))
	fmt.Fprintln(s.out, s.colors.Colorize(strings.Repeat("=", len(title)), ColorBrightBlue))
}

// Success prints a success status message
func (s *service) Success(message string) {
	fmt.Fprintf(s.out, "%s %s\n", s.colors.Colorize("[OK]", ColorBrightGreen), message)
}

// Warning prints a warning status message
func (s *service) Warning(message string) {
	fmt.Fprintf(s.out, "%s %s\n", s.colors.Colorize("[WARN]", ColorBrightYellow), message)
}

// Error prints an error status message
func (s *service) Error(message string) {
	fmt.Fprintf(s.out, "%s %s\n", s.colors.Colorize("[FAIL]", ColorBrightRed), message)
}

// Info prints an informational message
func (s *service) Info(message string) {
	fmt.Fprintf(s.out, "%s %s\n", s.colors.Colorize("[..]", ColorCyan), message)
}

// Printf prints a plain formatted message
func (s *service) Printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format, args...)
}

// SetOutput redirects all display output to the given writer
func (s *service) SetOutput(writer io.Writer) {
	s.out = writer
}

// Colors returns the underlying color system
func (s *service) Colors() ColorSystem {
	return s.colors
}
