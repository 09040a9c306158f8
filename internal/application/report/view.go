package report

import (
	"context"
	"encoding/base64"
	"slices"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-activity-report/internal/core/model"
	"github.com/penwyp/go-activity-report/internal/core/normalize"
	"github.com/penwyp/go-activity-report/internal/data/store"
	"github.com/penwyp/go-activity-report/internal/util"
)

// viewState is the raw property state of a report view, before it is turned
// into a filter.
type viewState struct {
	selection    model.ActivitySelection
	context      string
	from         float64
	to           float64
	segmentation model.Segmentation
	devicesRaw   []int
	usersRaw     *string
}

// View holds the properties the host UI sets on an embedded report and
// persists the resulting view-state on every change so the extension can
// pick it up.
type View struct {
	mu     sync.Mutex
	ctx    context.Context
	store  *store.StateStore
	state  viewState
	logger util.LoggerInterface
}

// NewView creates a view with the default state (today so far, daily, all
// users) and persists it immediately.
func NewView(ctx context.Context, stateStore *store.StateStore) *View {
	initial := stateStore.DefaultViewState("")
	v := &View{
		ctx:   ctx,
		store: stateStore,
		state: viewState{
			context:      initial.Context,
			from:         initial.From,
			to:           initial.To,
			segmentation: initial.Segmentation,
			usersRaw:     model.StringPtr(string(model.UsersAll)),
		},
		logger: util.Log().With(util.F("component", "report_view")),
	}

	v.mu.Lock()
	v.persist()
	v.mu.Unlock()
	return v
}

// SetFamilyActivitySelection decodes a serialized selection. The value may
// be JSON or base64-encoded JSON; anything else clears the selection.
func (v *View) SetFamilyActivitySelection(raw *string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.state.selection = model.ActivitySelection{}
	if raw != nil {
		selection, ok := decodeSelection(*raw)
		if !ok {
			v.logger.Warn("Ignoring undecodable activity selection")
		}
		v.state.selection = selection
	}
	v.persist()
}

func (v *View) SetContext(raw *string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.state.context = v.store.Sanitize(derefOr(raw, ""))
	v.persist()
}

func (v *View) SetFrom(raw *float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	r := normalize.Range(raw, &v.state.to)
	v.state.from, v.state.to = r.From, r.To
	v.persist()
}

func (v *View) SetTo(raw *float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	r := normalize.Range(&v.state.from, raw)
	v.state.from, v.state.to = r.From, r.To
	v.persist()
}

func (v *View) SetSegmentation(raw *string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.state.segmentation = model.ParseSegmentationPtr(raw)
	v.persist()
}

func (v *View) SetDevices(raw []int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.state.devicesRaw = slices.Clone(raw)
	v.persist()
}

func (v *View) SetUsers(raw *string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if raw == nil {
		v.state.usersRaw = nil
	} else {
		v.state.usersRaw = model.StringPtr(*raw)
	}
	v.persist()
}

// Context returns the current sanitized report context.
func (v *View) Context() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.context
}

// Filter describes what the host should query for the current state.
func (v *View) Filter() model.Filter {
	v.mu.Lock()
	defer v.mu.Unlock()

	start := util.FromUnixSeconds(v.state.from)
	end := util.FromUnixSeconds(v.state.to)
	if end.Before(start) {
		end = start.Add(time.Second)
	}

	return model.Filter{
		Segment: model.SegmentInterval{
			Segmentation: v.state.segmentation,
			Start:        start,
			End:          end,
		},
		Users:   model.ParseUserSelection(v.state.usersRaw),
		Devices: model.DevicesFromRawValues(v.state.devicesRaw),
		Selection: model.ActivitySelection{
			ApplicationTokens: slices.Clone(v.state.selection.ApplicationTokens),
			CategoryTokens:    slices.Clone(v.state.selection.CategoryTokens),
			WebDomainTokens:   slices.Clone(v.state.selection.WebDomainTokens),
		},
	}
}

// LatestSnapshot returns the last snapshot the extension wrote for
// reportContext, or nil.
func (v *View) LatestSnapshot(ctx context.Context, reportContext string) *model.Snapshot {
	return v.store.GetSnapshot(ctx, reportContext)
}

// persist writes the current state. Must be called with v.mu held.
func (v *View) persist() {
	state := model.ViewState{
		Context:      v.state.context,
		From:         v.state.from,
		To:           v.state.to,
		Segmentation: v.state.segmentation,
	}
	if err := v.store.SetViewState(v.ctx, v.state.context, state); err != nil {
		v.logger.Error("Failed to persist view-state", util.F("context", v.state.context), util.F("error", err.Error()))
	}
}

func decodeSelection(raw string) (model.ActivitySelection, bool) {
	var selection model.ActivitySelection
	data := []byte(raw)
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		data = decoded
	}
	if err := sonic.Unmarshal(data, &selection); err != nil {
		return model.ActivitySelection{}, false
	}
	return selection, true
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
