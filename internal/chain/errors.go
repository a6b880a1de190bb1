package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/puzpuzpuz/xsync/v4"

	"trueAnalytics/internal/model"
)

type palletErrors struct {
	pallet string
	items  map[uint8]model.MetaError
}

// ModuleErrors resolves pallet error codes through the Sidecar pallets API.
// Each pallet's error list is fetched once and cached for the process lifetime.
type ModuleErrors struct {
	sidecar *Sidecar
	cache   *xsync.Map[uint8, palletErrors]
}

func NewModuleErrors(sidecar *Sidecar) *ModuleErrors {
	return &ModuleErrors{
		sidecar: sidecar,
		cache:   xsync.NewMap[uint8, palletErrors](),
	}
}

// ResolveModuleError returns the section, name and docs of a pallet error.
func (m *ModuleErrors) ResolveModuleError(ctx context.Context, moduleErr model.ModuleError) (model.MetaError, error) {
	errs, ok := m.cache.Load(moduleErr.Index)
	if !ok {
		fetched, err := m.fetch(ctx, moduleErr.Index)
		if err != nil {
			return model.MetaError{}, err
		}
		m.cache.Store(moduleErr.Index, fetched)
		errs = fetched
	}

	meta, ok := errs.items[moduleErr.Error]
	if !ok {
		return model.MetaError{}, fmt.Errorf("pallet %s has no error %d", errs.pallet, moduleErr.Error)
	}
	return meta, nil
}

type sidecarPalletErrors struct {
	Pallet string `json:"pallet"`
	Items  []struct {
		Name  string      `json:"name"`
		Index json.Number `json:"index"`
		Docs  []string    `json:"docs"`
	} `json:"items"`
}

func (m *ModuleErrors) fetch(ctx context.Context, palletIndex uint8) (palletErrors, error) {
	var resp sidecarPalletErrors
	path := "/pallets/" + strconv.Itoa(int(palletIndex)) + "/errors"
	if err := m.sidecar.getJSON(ctx, path, nil, &resp); err != nil {
		return palletErrors{}, fmt.Errorf("pallet %d errors: %w", palletIndex, err)
	}

	out := palletErrors{pallet: resp.Pallet, items: make(map[uint8]model.MetaError, len(resp.Items))}
	for _, item := range resp.Items {
		index, err := strconv.ParseUint(item.Index.String(), 10, 8)
		if err != nil {
			return palletErrors{}, fmt.Errorf("pallet %d error %q index: %w", palletIndex, item.Name, err)
		}
		out.items[uint8(index)] = model.MetaError{
			Section: resp.Pallet,
			Method:  item.Name,
			Docs:    item.Docs,
		}
	}
	return out, nil
}
