package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jlmoray/stationwatch/internal/poll"
	"github.com/jlmoray/stationwatch/internal/quota"
	"github.com/jlmoray/stationwatch/internal/registry"
	"github.com/jlmoray/stationwatch/internal/store"
	"github.com/jlmoray/stationwatch/internal/wx"
)

var validate = validator.New()

// Deps collects everything the HTTP handlers read or mutate.
type Deps struct {
	Devices  *registry.Devices
	Triggers *registry.Triggers
	History  *store.MemoryStore
	Quota    *quota.Tracker
	Engine   *poll.Engine
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/devices", func(c *fiber.Ctx) error {
		out := make([]deviceView, 0)
		for _, dev := range deps.Devices.List() {
			state, _ := deps.Devices.State(dev.Key)
			out = append(out, newDeviceView(dev, state, deps.Devices.Enabled(dev.Key)))
		}
		return c.JSON(fiber.Map{"devices": out})
	})

	v1.Get("/devices/:key", func(c *fiber.Ctx) error {
		key := c.Params("key")
		dev, ok := deps.Devices.Get(key)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown device")
		}
		state, _ := deps.Devices.State(key)
		return c.JSON(newDeviceView(dev, state, deps.Devices.Enabled(key)))
	})

	v1.Get("/devices/:key/latest", func(c *fiber.Ctx) error {
		key := c.Params("key")
		if _, ok := deps.Devices.Get(key); !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown device")
		}

		record, err := deps.History.Latest(key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no observations recorded for device")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch latest observation")
		}
		return c.JSON(record)
	})

	v1.Get("/devices/:key/history", func(c *fiber.Ctx) error {
		key := c.Params("key")
		if _, ok := deps.Devices.Get(key); !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown device")
		}

		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records, err := deps.History.Range(key, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch history")
		}

		return c.JSON(fiber.Map{
			"device":  key,
			"from":    req.From,
			"to":      req.To,
			"records": records,
		})
	})

	v1.Post("/devices/enabled", func(c *fiber.Ctx) error {
		var req enabledRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		deps.Devices.SetAllEnabled(req.Enabled)
		return c.JSON(fiber.Map{"enabled": req.Enabled})
	})

	v1.Post("/devices/:key/enabled", func(c *fiber.Ctx) error {
		var req enabledRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := deps.Devices.SetEnabled(c.Params("key"), req.Enabled); err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return c.JSON(fiber.Map{"device": c.Params("key"), "enabled": req.Enabled})
	})

	v1.Post("/devices/:key/alert", func(c *fiber.Ctx) error {
		var req alertRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := deps.Devices.SetAlert(c.Params("key"), req.Active); err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return c.JSON(fiber.Map{"device": c.Params("key"), "alertActive": req.Active})
	})

	v1.Get("/quota", func(c *fiber.Ctx) error {
		return c.JSON(deps.Quota.Snapshot())
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		if err := deps.Engine.Refresh(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	v1.Get("/triggers", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"triggers": deps.Triggers.List()})
	})

	v1.Post("/triggers", func(c *fiber.Ctx) error {
		var req triggerRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if _, ok := deps.Devices.Get(req.DeviceKey); !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown device")
		}

		binding, err := deps.Triggers.Register(registry.Binding{
			DeviceKey:        req.DeviceKey,
			Kind:             registry.TriggerKind(req.Kind),
			ThresholdMinutes: req.ThresholdMinutes,
		})
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(binding)
	})

	v1.Delete("/triggers/:id", func(c *fiber.Ctx) error {
		if err := deps.Triggers.Remove(c.Params("id")); err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// deviceView is the wire shape of a device plus its published state.
type deviceView struct {
	Key         string          `json:"key"`
	Name        string          `json:"name"`
	Location    string          `json:"location"`
	Units       string          `json:"units"`
	Enabled     bool            `json:"enabled"`
	Online      bool            `json:"online"`
	Status      string          `json:"status"`
	AlertActive bool            `json:"alertActive"`
	Observation *wx.Observation `json:"observation,omitempty"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func newDeviceView(dev registry.Device, state registry.State, enabled bool) deviceView {
	return deviceView{
		Key:         dev.Key,
		Name:        dev.Name,
		Location:    dev.Location,
		Units:       string(dev.Units),
		Enabled:     enabled,
		Online:      state.Online,
		Status:      state.Status,
		AlertActive: state.AlertActive,
		Observation: state.Observation,
		UpdatedAt:   state.UpdatedAt,
	}
}

type enabledRequest struct {
	Enabled bool `json:"enabled"`
}

type alertRequest struct {
	Active bool `json:"active"`
}

type triggerRequest struct {
	DeviceKey        string `json:"deviceKey" validate:"required"`
	Kind             string `json:"kind" validate:"oneof=offline alert"`
	ThresholdMinutes int    `json:"thresholdMinutes" validate:"min=0"`
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
