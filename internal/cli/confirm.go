package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// confirm asks a yes/no question on stderr and reads the answer from stdin.
// Anything but y/yes is a no.
func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N]: ", prompt)
	var response string
	_, _ = fmt.Fscanln(cmd.InOrStdin(), &response)
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}
