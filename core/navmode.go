package core

import (
	"context"
	"fmt"
	"time"

	"github.com/signalsfoundry/efis-adapter/model"
)

// AutopilotReader reads autopilot state for a category. ok=false means the
// source has no state for it.
type AutopilotReader interface {
	ReadAutopilot(ctx context.Context, cat model.Category) (state model.APSystemState, ok bool, err error)
}

// NavModeResolver reads navigation mode state. It has its own source and does
// not take part in the airframe role failover.
type NavModeResolver struct {
	src     AutopilotReader
	table   ScalingTable
	timeout time.Duration
}

// NewNavModeResolver builds a resolver over src. timeout bounds each read;
// zero disables the bound.
func NewNavModeResolver(src AutopilotReader, table ScalingTable, timeout time.Duration) *NavModeResolver {
	return &NavModeResolver{src: src, table: table, timeout: timeout}
}

// ReadNavMode returns the autopilot state for cat or an error wrapping
// ErrNavDataUnavailable. Callers render that as a degraded display.
func (r *NavModeResolver) ReadNavMode(ctx context.Context, cat model.Category) (model.APSystemState, error) {
	if cat.ID == "" || !cat.Valid {
		return model.APSystemState{}, fmt.Errorf("%w: category must be resolved before reading", ErrUnknownCategory)
	}
	if r == nil || r.src == nil {
		return model.APSystemState{}, fmt.Errorf("%w: no autopilot source configured", ErrNavDataUnavailable)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	st, ok, err := r.src.ReadAutopilot(ctx, cat)
	switch {
	case err != nil:
		return model.APSystemState{}, fmt.Errorf("%w: %w", ErrNavDataUnavailable, err)
	case !ok:
		return model.APSystemState{}, ErrNavDataUnavailable
	case !st.NavMode.Known():
		return model.APSystemState{}, fmt.Errorf("%w: unrecognised nav mode %d", ErrNavDataUnavailable, int(st.NavMode))
	}
	return st, nil
}

// View converts autopilot state to display units. Vertical guidance is shown
// for LNAV only, and only when the source flags it valid.
func (r *NavModeResolver) View(st model.APSystemState) model.NavModeView {
	v := model.NavModeView{
		Mode:    st.NavMode.String(),
		Code:    r.table.Apply(FieldNavMode, int32(st.NavMode)),
		Engaged: st.Engaged,
	}
	if st.NavMode == model.NavModeLNAV && st.VerticalGuidanceValid {
		v.HasVerticalGuidance = true
		v.VerticalDeviation = r.table.Apply(FieldVerticalDeviation, st.VerticalDeviationRaw)
	}
	return v
}
