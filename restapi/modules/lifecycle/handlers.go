// Package lifecycle implements the REST API handlers for the recorded expiration and
// revival events.
package lifecycle

import (
	"context"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	vulnevents "github.com/savoirfairelinux/vulnscout-sub000/events/modules/vulnerabilities"
)

// EventLister reads back the lifecycle events consumed from Kafka.
type EventLister interface {
	ListLifecycleEvents(ctx context.Context, vulnID string) ([]vulnevents.LifecycleEvent, error)
}

const queryTimeout = 30 * time.Second

// ListEvents returns the events of the vuln_id path parameter, or all of them when absent.
func ListEvents(store EventLister, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vulnID, err := url.PathUnescape(c.Params("vuln_id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid vulnerability id"})
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), queryTimeout)
		defer cancel()
		events, err := store.ListLifecycleEvents(ctx, vulnID)
		if err != nil {
			logger.Error("failed to list lifecycle events", zap.String("vuln_id", vulnID), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list lifecycle events"})
		}
		if events == nil {
			events = []vulnevents.LifecycleEvent{}
		}
		return c.JSON(events)
	}
}
