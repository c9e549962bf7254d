package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/caltrain-transit/railfeed/pkg/kvstore"
)

func scheduleHandler(store kvstore.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		value, _, ok, err := store.Get(c.Context(), kvstore.KeyScheduleData)
		if err != nil {
			return err
		}
		if !ok {
			return notFound(c, "No schedule data")
		}

		c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(value)
	}
}

func metaHandler(store kvstore.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		value, _, ok, err := store.Get(c.Context(), kvstore.KeyScheduleMeta)
		if err != nil {
			return err
		}
		if !ok {
			return notFound(c, "No schedule metadata")
		}

		meta := map[string]interface{}{}
		if err := json.Unmarshal(value, &meta); err != nil {
			return err
		}

		if _, metadata, ok, err := store.Get(c.Context(), kvstore.KeyRealtimeStatus); err == nil && ok {
			if feedTimestamp, err := strconv.ParseInt(metadata["t"], 10, 64); err == nil {
				meta["realtimeAge"] = time.Now().Unix() - feedTimestamp
			}
		}

		encoded, err := json.Marshal(meta)
		if err != nil {
			return err
		}

		c.Set(fiber.HeaderCacheControl, "public, max-age=60")
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(encoded)
	}
}

func realtimeHandler(store kvstore.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		value, metadata, ok, err := store.Get(c.Context(), kvstore.KeyRealtimeStatus)
		if err != nil {
			return err
		}
		if !ok {
			return notFound(c, "No realtime data")
		}

		etag := fmt.Sprintf(`W/"%s"`, metadata["t"])

		c.Set(fiber.HeaderCacheControl, "public, max-age=30")
		c.Set(fiber.HeaderETag, etag)

		if c.Get(fiber.HeaderIfNoneMatch) == etag {
			return c.SendStatus(fiber.StatusNotModified)
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(value)
	}
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": message})
}
