// Package workers holds the fan-out stages that finish indexing after the
// ingestion front has dispatched an image. Each stage subscribes to the same
// topic and marks its own completion stage, so stages run independently and
// in any order.
package workers

import (
	"context"
	"encoding/json"

	"github.com/ezbake/ezbake-image-frack/common/ident"
	"github.com/ezbake/ezbake-image-frack/common/imagestore"
	"github.com/ezbake/ezbake-image-frack/common/models"
	"github.com/ezbake/ezbake-image-frack/common/queue"
	"github.com/ezbake/ezbake-image-frack/common/status"
	"github.com/ezbake/ezbake-image-frack/common/store"
)

// Logger is the narrow logging interface the stages require.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Stage processes one dispatched image.
type Stage interface {
	Name() string
	Process(ctx context.Context, event *models.IngestedImage) error
}

// Handler adapts a stage into a queue handler. Decode failures and stage
// errors are logged and swallowed so a poison message never stops delivery.
func Handler(stage Stage, log Logger) queue.MessageHandler {
	return func(ctx context.Context, message []byte) error {
		var event models.IngestedImage
		if err := json.Unmarshal(message, &event); err != nil {
			log.Error("dropping undecodable event", "stage", stage.Name(), "error", err)
			return nil
		}
		if err := stage.Process(ctx, &event); err != nil {
			log.Error("stage failed, dropping event", "stage", stage.Name(), "image_id", event.ImageInfo.ImageID, "error", err)
		}
		return nil
	}
}

// fetchOriginal reads the original image under the event's authorizations.
// A nil image means the original is gone or out of scope; the stage skips.
func fetchOriginal(ctx context.Context, images *imagestore.Store, event *models.IngestedImage) (*models.Image, error) {
	return images.GetImage(ctx, event.ImageInfo.ImageID, store.Authorizations(event.Authorizations))
}

func markStage(ctx context.Context, images *imagestore.Store, event *models.IngestedImage, stage status.Stage) error {
	row, err := ident.HexToBytes(event.ImageInfo.ImageID)
	if err != nil {
		return err
	}
	return images.Tracker().AddCompletedStage(ctx, row, event.ImageInfo.Visibility, store.Authorizations(event.Authorizations), stage)
}
