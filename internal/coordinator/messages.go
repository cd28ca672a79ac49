package coordinator

import (
	"fmt"
	"strings"

	"reelgrab/internal/consts"
	"reelgrab/internal/entity"
)

// statusText renders the status message body for a lifecycle state. percent
// is only shown while downloading and only when > 0.
func statusText(status entity.TaskStatus, percent int) string {
	var b strings.Builder

	b.WriteString("<b>")
	b.WriteString(consts.StatusTitle)
	b.WriteString("</b>\n\n")

	switch status {
	case entity.TaskStatusAwaitingDownload, entity.TaskStatusDelivering:
		b.WriteString(consts.StatusInProgress)

		if percent > 0 {
			fmt.Fprintf(&b, " (%d%%)", percent)
		}
	case entity.TaskStatusDone:
		b.WriteString(consts.StatusDone)
	case entity.TaskStatusFailed:
		b.WriteString(consts.StatusFailed)
	}

	return b.String()
}

// closingText is the final acknowledgment after successful delivery.
func closingText() string {
	return consts.MsgDone
}

// failureText renders the user-visible failure notice: the original URL so
// nothing is lost, plus any caption salvaged before the failure.
func failureText(task *entity.Task) string {
	msg := consts.MsgFailedPrefix + task.URL

	if task.Caption != "" {
		msg += "\n\n" + task.Caption
	}

	return msg
}
