package bancho

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/NESSBZID/bncho/internal/dependencies/random"
)

// CommandResult is a chat command's outcome. Public responses go to the
// whole channel; private ones only to the invoker.
type CommandResult struct {
	Public   bool
	Response string
}

// CommandProcessor consumes chat lines and reports whether one was a
// command, with an optional response.
type CommandProcessor interface {
	Process(sender, target, text string) (CommandResult, bool)
}

// BasicCommands handles the built-in ! commands.
type BasicCommands struct {
	random random.Random
}

// Ensure BasicCommands implements the interface
var _ CommandProcessor = (*BasicCommands)(nil)

func NewBasicCommands(rnd random.Random) *BasicCommands {
	return &BasicCommands{random: rnd}
}

func (c *BasicCommands) Process(sender, target, text string) (CommandResult, bool) {
	if !strings.HasPrefix(text, "!") {
		return CommandResult{}, false
	}
	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return CommandResult{}, false
	}
	switch fields[0] {
	case "roll":
		max := 100
		if len(fields) > 1 {
			if v, err := strconv.Atoi(fields[1]); err == nil && v > 0 {
				max = v
			}
		}
		// Cap like the official bot so nobody rolls 2^31.
		if max > 0x7fff {
			max = 0x7fff
		}
		n := c.random.Intn(max) + 1
		return CommandResult{
			Public:   true,
			Response: fmt.Sprintf("%s rolls %d points!", sender, n),
		}, true
	case "help":
		return CommandResult{
			Public:   false,
			Response: "Available commands: !roll [max], !help",
		}, true
	default:
		return CommandResult{
			Public:   false,
			Response: fmt.Sprintf("Unknown command: %s. Try !help.", fields[0]),
		}, true
	}
}
