package tasks

import (
	"fmt"
	"strings"

	"github.com/desertthunder/tunedl/internal/ledger"
	"github.com/desertthunder/tunedl/internal/models"
	"github.com/desertthunder/tunedl/internal/reference"
)

// startedUpdate announces what the reference resolved to.
func startedUpdate(info *models.ItemInfo, total int) ledger.Event {
	switch info.Kind {
	case reference.KindPlaylist:
		return ledger.NewEvent(ledger.Info, fmt.Sprintf("Downloading playlist: %s (%d tracks)", info.Name, total))
	case reference.KindAlbum:
		return ledger.NewEvent(ledger.Info, fmt.Sprintf("Downloading album: %s by %s (%d tracks)", info.Name, strings.Join(info.Artists, ", "), total))
	default:
		artist := ""
		if len(info.Artists) > 0 {
			artist = info.Artists[0]
		}
		return ledger.NewEvent(ledger.Info, fmt.Sprintf("Downloading single track: %s by %s", info.Name, artist))
	}
}

func foundTracksUpdate(total int) ledger.Event {
	return ledger.NewEvent(ledger.Info, fmt.Sprintf("Found %d tracks to download", total))
}

func readyUpdate(total int, folder string) ledger.Event {
	return ledger.NewEvent(ledger.Info, fmt.Sprintf("Ready to download %d tracks to folder: %s", total, folder))
}

func trackUpdate(step, total int, title, artist string) ledger.Event {
	return ledger.NewEvent(ledger.Info, fmt.Sprintf("Track %d/%d: %s by %s", step, total, title, artist))
}

func alreadyDownloadedUpdate(file string) ledger.Event {
	return ledger.NewEvent(ledger.Info, "Already downloaded: "+file)
}

func downloadedUpdate(file string) ledger.Event {
	return ledger.NewEvent(ledger.Success, "Successfully downloaded: "+file)
}

func missingFileUpdate(file string) ledger.Event {
	return ledger.NewEvent(ledger.Error, "Failed to download "+file)
}

func retrievalFailedUpdate(step int, err error) ledger.Event {
	return ledger.NewEvent(ledger.Error, fmt.Sprintf("Error downloading track %d: %v. Skipping this song.", step, err))
}

func diagnosticUpdate(line string) ledger.Event {
	return ledger.NewEvent(ledger.Error, line)
}

func mismatchUpdate(sourceTitle string) ledger.Event {
	return ledger.NewEvent(ledger.Warning, "Matched source may differ: "+sourceTitle)
}

func metadataFailedUpdate(err error) ledger.Event {
	return ledger.NewEvent(ledger.Error, fmt.Sprintf("Error adding metadata: %v", err))
}

func coverFailedUpdate() ledger.Event {
	return ledger.NewEvent(ledger.Warning, "Could not add album art")
}

func permissionUpdate(err error) ledger.Event {
	return ledger.NewEvent(ledger.Error, fmt.Sprintf("No write permissions in download folder: %v", err))
}

func completedUpdate(folder string) ledger.Event {
	return ledger.NewEvent(ledger.Success, fmt.Sprintf("Download completed! Check the '%s' folder.", folder))
}

func noTracksUpdate() ledger.Event {
	return ledger.NewEvent(ledger.Warning, "No tracks found to download.")
}

func fatalUpdate(err any) ledger.Event {
	return ledger.NewEvent(ledger.Error, fmt.Sprintf("Fatal error: %v", err))
}
