package capture

import (
	"fmt"
	"log"
	"os"

	"tray-translate-llm/screenshot"
	"tray-translate-llm/translator"
)

var promptText string

// Init stores the prompt used for every capture cycle.
func Init(prompt string) {
	promptText = prompt
}

// TranslateRegion captures a screen region and runs it through the vision
// model with the configured prompt.
func TranslateRegion(region screenshot.Region) (string, error) {
	log.Printf("Capturing region: X=%d Y=%d Width=%d Height=%d", region.X, region.Y, region.Width, region.Height)

	imageData, err := screenshot.CaptureRegion(region)
	if err != nil {
		return "", err
	}

	if os.Getenv("TRANSLATE_DEBUG_SAVE_IMAGES") == "true" {
		debugFilename := fmt.Sprintf("debug_captured_region_%dx%d.png", region.Width, region.Height)
		if err := os.WriteFile(debugFilename, imageData, 0600); err != nil {
			log.Printf("Warning: Could not save debug image: %v", err)
		} else {
			log.Printf("Saved captured region to %s (%d bytes)", debugFilename, len(imageData))
		}
	}

	return TranslateImage(imageData)
}

// TranslateImage runs already-captured PNG data through the vision model.
func TranslateImage(imageData []byte) (string, error) {
	if promptText == "" {
		return "", fmt.Errorf("capture package not initialized with a prompt")
	}
	return translator.Translate(imageData, promptText)
}
