// Package prompt resolves the operator's site selection from an interactive
// terminal loop.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"site-backup/internal/display"
	"site-backup/internal/site"
)

// SelectionKind classifies a parsed prompt input
type SelectionKind int

const (
	// SelectionInvalid means the input was not a valid token or index
	SelectionInvalid SelectionKind = iota
	// SelectionOne selects a single site by index
	SelectionOne
	// SelectionAll selects every discovered site
	SelectionAll
	// SelectionQuit terminates the program without error
	SelectionQuit
)

// Selection is the resolved outcome of the prompt loop. It is returned to
// the caller; no selection state is shared globally.
type Selection struct {
	Kind  SelectionKind
	Index int // 0-based site index, valid only for SelectionOne
}

// Prompter presents discovered sites and resolves a selection
type Prompter interface {
	Select(sites []site.Site) (Selection, error)
}

// prompter implements Prompter over an injectable reader and display service
type prompter struct {
	reader  *bufio.Reader
	display display.Service
}

// NewPrompter creates a prompter reading from in
func NewPrompter(in io.Reader, displayService display.Service) Prompter {
	return &prompter{
		reader:  bufio.NewReader(in),
		display: displayService,
	}
}

// Select lists the sites and reads input until a valid selection is made.
// Invalid input (non-numeric, out-of-range, empty) never terminates the
// loop; it re-asks until a 1-based index, the "all" token, or the "quit"
// token is received. Closed input is treated as quit.
func (p *prompter) Select(sites []site.Site) (Selection, error) {
	p.display.PrintHeader(fmt.Sprintf("Discovered %d site(s)", len(sites)))
	for i, s := range sites {
		p.display.Printf("  %2d) %s\n", i+1, s.Name)
	}
	p.display.Printf("\n")

	for {
		p.display.Printf("Select a site [1-%d], (a)ll, or (q)uit: ", len(sites))

		line, err := p.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// A final line without a trailing newline is still input;
				// only classify the close itself as quit.
				if selection := ParseSelection(line, len(sites)); selection.Kind != SelectionInvalid {
					return selection, nil
				}
				return Selection{Kind: SelectionQuit}, nil
			}
			return Selection{}, fmt.Errorf("failed to read selection: %w", err)
		}

		selection := ParseSelection(line, len(sites))
		if selection.Kind == SelectionInvalid {
			p.display.Warning(fmt.Sprintf("Invalid selection %q - enter a number between 1 and %d, 'a' for all, or 'q' to quit", strings.TrimSpace(line), len(sites)))
			continue
		}

		return selection, nil
	}
}

// ParseSelection classifies one line of input against the current site
// count. Out-of-range indices are invalid input, not an error.
func ParseSelection(input string, siteCount int) Selection {
	input = strings.ToLower(strings.TrimSpace(input))

	switch input {
	case "a", "all":
		return Selection{Kind: SelectionAll}
	case "q", "quit":
		return Selection{Kind: SelectionQuit}
	}

	index, err := strconv.Atoi(input)
	if err != nil || index < 1 || index > siteCount {
		return Selection{Kind: SelectionInvalid}
	}

	return Selection{Kind: SelectionOne, Index: index - 1}
}
