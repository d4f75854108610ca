// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/one2talk/votekeeper/internal/db"
	"github.com/one2talk/votekeeper/internal/i18n"
	"github.com/spf13/cobra"
)

// promptLine prints label and reads one trimmed line from the command's input.
func promptLine(cmd *cobra.Command, label string) string {
	fmt.Fprint(cmd.OutOrStdout(), label)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	return strings.TrimSpace(line)
}

// confirm shows warning and succeeds only when the user types the
// confirmation word in full.
func confirm(cmd *cobra.Command, warning string) bool {
	fmt.Fprintln(cmd.OutOrStdout(), warning)
	word := i18n.T("common.yes_word")
	return strings.EqualFold(promptLine(cmd, i18n.T("common.confirm_prompt", word)), word)
}

func maskedURL() string {
	return db.MaskDSN(appConfig.Database.URL)
}
