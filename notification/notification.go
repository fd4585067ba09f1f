package notification

import (
	"log"
	"unicode/utf8"

	"github.com/gen2brain/beeep"
	"github.com/ncruces/zenity"
)

const appName = "Tray Translate"

// maxDisplayChars bounds notification body length; desktop toasts clip long
// text anyway and the full translation lands on the clipboard.
const maxDisplayChars = 200

// ShowResult displays the translated text in a transient desktop notification.
func ShowResult(text string) {
	show("Translation ready", truncate(text))
}

// ShowError displays a transient error notification.
func ShowError(msg string) {
	show("Translation failed", truncate(msg))
}

// ShowBusy tells the user a cycle is already in flight.
func ShowBusy() {
	show("Busy", "A translation is already in progress, please retry")
}

// ShowBlockingError displays a modal error dialog and waits for dismissal.
// Used for startup failures that must not pass silently.
func ShowBlockingError(title, message string) {
	if err := zenity.Error(message, zenity.Title(appName+" - "+title)); err != nil {
		log.Printf("%s: %s (dialog error: %v)", title, message, err)
	}
}

func show(title, body string) {
	// Notification failures are not worth surfacing; log and move on.
	if err := beeep.Notify(appName+": "+title, body, ""); err != nil {
		log.Printf("Failed to show notification %q: %v", title, err)
	}
}

// truncate cuts on a rune boundary; translations are rarely plain ASCII and a
// mid-rune slice would put invalid UTF-8 into the toast.
func truncate(s string) string {
	if len(s) <= maxDisplayChars {
		return s
	}
	cut := maxDisplayChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
