// internal/browser/cdp/host.go
package cdp

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/inview/internal/browser/session"
	"github.com/xkilldash9x/inview/pkg/inview"
)

// Host exposes a live browser tab through the inview host interfaces. Every
// handle it returns wraps a remote object in the host's object group; Release
// frees them all at once.
type Host struct {
	tabCtx context.Context
	logger *zap.Logger
	group  string
}

// NewHost binds a host to a chromedp tab context.
func NewHost(tabCtx context.Context, logger *zap.Logger) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	group := "inview-" + uuid.New().String()
	return &Host{
		tabCtx: tabCtx,
		logger: logger.Named("cdp_host").With(zap.String("object_group", group[:15])),
		group:  group,
	}
}

// Window returns the tab's top level window.
func (h *Host) Window(ctx context.Context) (*Window, error) {
	var obj *runtime.RemoteObject
	err := h.run(ctx, chromedp.Evaluate("window", &obj, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithObjectGroup(h.group)
	}))
	if err != nil {
		return nil, fmt.Errorf("resolving window: %w", err)
	}
	if obj == nil || obj.ObjectID == "" {
		return nil, fmt.Errorf("resolving window: no object returned")
	}
	return &Window{remote{host: h, id: obj.ObjectID}}, nil
}

// Release frees every remote object handed out by the host. Handles must not
// be used afterwards.
func (h *Host) Release(ctx context.Context) error {
	err := h.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return runtime.ReleaseObjectGroup(h.group).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("releasing object group: %w", err)
	}
	h.logger.Debug("Object group released.")
	return nil
}

// run executes actions against the tab, bounded by the caller's context.
func (h *Host) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := session.CombineContext(h.tabCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// call invokes fn with this bound to the object id. Plain Go values in args
// are passed by value; res follows chromedp.CallFunctionOn semantics.
func (h *Host) call(ctx context.Context, id runtime.RemoteObjectID, fn string, res interface{}, args ...interface{}) error {
	return h.run(ctx, chromedp.CallFunctionOn(fn, res, func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
		return p.WithObjectID(id).WithObjectGroup(h.group)
	}, args...))
}

// callWith invokes fn with this bound to id and a single remote object argument.
func (h *Host) callWith(ctx context.Context, id, arg runtime.RemoteObjectID, fn string, res interface{}) error {
	return h.run(ctx, chromedp.CallFunctionOn(fn, res, func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
		return p.WithObjectID(id).
			WithObjectGroup(h.group).
			WithArguments([]*runtime.CallArgument{{ObjectID: arg}})
	}))
}

// callObject invokes fn and returns the remote object id of its result, or
// "" when the result is null or undefined.
func (h *Host) callObject(ctx context.Context, id runtime.RemoteObjectID, fn string, args ...interface{}) (runtime.RemoteObjectID, error) {
	var obj *runtime.RemoteObject
	if err := h.call(ctx, id, fn, &obj, args...); err != nil {
		return "", err
	}
	if obj == nil {
		return "", nil
	}
	return obj.ObjectID, nil
}

// callElements invokes fn, which must return an array of elements, and wraps
// each entry.
func (h *Host) callElements(ctx context.Context, id runtime.RemoteObjectID, fn string, args ...interface{}) ([]inview.Element, error) {
	arrayID, err := h.callObject(ctx, id, fn, args...)
	if err != nil {
		return nil, err
	}
	if arrayID == "" {
		return nil, nil
	}

	var (
		props []*runtime.PropertyDescriptor
		tags  []string
	)
	err = h.run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var exc *runtime.ExceptionDetails
			var err error
			props, _, _, exc, err = runtime.GetProperties(arrayID).WithOwnProperties(true).Do(ctx)
			if err != nil {
				return err
			}
			if exc != nil {
				return exc
			}
			return nil
		}),
		chromedp.CallFunctionOn(tagNamesJS, &tags, func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(arrayID)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("reading element list: %w", err)
	}

	ids := indexedObjects(props)
	if len(ids) != len(tags) {
		return nil, fmt.Errorf("reading element list: %d handles for %d elements", len(ids), len(tags))
	}
	out := make([]inview.Element, len(ids))
	for i, oid := range ids {
		out[i] = &Element{remote: remote{host: h, id: oid}, tag: tags[i]}
	}
	return out, nil
}

// indexedObjects returns the object ids of an array's index properties in
// index order. Named properties such as length are skipped.
func indexedObjects(props []*runtime.PropertyDescriptor) []runtime.RemoteObjectID {
	type entry struct {
		index int
		id    runtime.RemoteObjectID
	}
	entries := make([]entry, 0, len(props))
	for _, p := range props {
		if p == nil || p.Value == nil || p.Value.ObjectID == "" {
			continue
		}
		i, err := strconv.Atoi(p.Name)
		if err != nil || i < 0 {
			continue
		}
		entries = append(entries, entry{index: i, id: p.Value.ObjectID})
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].index < entries[b].index })

	ids := make([]runtime.RemoteObjectID, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids
}
