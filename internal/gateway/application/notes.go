package application

import "fmt"

// Every lifecycle transition writes an order note built from this table. One
// template per event keeps the audit wording in a single place instead of
// interpolated at call sites.
type noteEvent int

const (
	noteCaptureSucceeded noteEvent = iota
	noteCaptureFailed
	noteCaptureError
	noteAuthorizationExpired
	noteRefundSucceeded
	noteRefundSucceededReason
	noteRefundFailed
	noteCancelSucceeded
	noteCancelFailed
)

var noteTemplates = map[noteEvent]string{
	noteCaptureSucceeded:      "A payment of %s was successfully captured using PayBridge (%s).",
	noteCaptureFailed:         "A capture of %s failed to complete using PayBridge (%s).",
	noteCaptureError:          "A capture of %s failed to complete using PayBridge (%s): %s",
	noteAuthorizationExpired:  "Payment authorization has expired (%s).",
	noteRefundSucceeded:       "A refund of %s was successfully processed using PayBridge (%s).",
	noteRefundSucceededReason: "A refund of %s was successfully processed using PayBridge (%s). Reason: %s",
	noteRefundFailed:          "A refund of %s failed to complete: %s",
	noteCancelSucceeded:       "Payment authorization was successfully cancelled (%s).",
	noteCancelFailed:          "Canceling authorization failed to complete with the following message: %s",
}

func composeNote(ev noteEvent, args ...any) string {
	return fmt.Sprintf(noteTemplates[ev], args...)
}
