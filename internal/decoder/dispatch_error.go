package decoder

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"trueAnalytics/internal/model"
)

const noDetails = "No details available"

type errorInfo struct {
	section     string
	name        string
	description string
}

func (e errorInfo) String() string {
	return e.section + "." + e.name
}

var unknownError = errorInfo{section: "Unknown", name: "Unknown", description: "Unknown error"}

// decodeExtrinsicFailed never fails: when the dispatch error cannot be
// resolved the event is still emitted with an "Unknown" error and the raw payload.
func (d *Decoder) decodeExtrinsicFailed(ctx context.Context, data map[string]any) ([]model.EventParameter, Outcome) {
	raw := data["dispatchError"]

	info, err := d.describeDispatchError(ctx, raw)
	var details string
	if err == nil {
		details, err = canonicalJSON(raw)
	}
	if err != nil {
		d.logger.Warn("decode dispatch error failed", zap.Error(err))
		return []model.EventParameter{
			{Name: "Error", Value: "Unknown", Description: "Failed to decode the error"},
			{Name: "Details", Value: rawString(raw), Description: "Raw error data"},
		}, OutcomeFallback
	}

	return []model.EventParameter{
		{Name: "Error", Value: info.String(), Description: info.description},
		{Name: "Details", Value: details, Description: "Technical error details"},
	}, OutcomeOK
}

// describeDispatchError tries module, token and arithmetic errors in that order.
func (d *Decoder) describeDispatchError(ctx context.Context, raw any) (errorInfo, error) {
	if raw == nil {
		return errorInfo{}, fmt.Errorf("missing dispatch error")
	}

	if inner, ok := variant(raw, "Module"); ok {
		return d.describeModuleError(ctx, inner)
	}
	if inner, ok := variant(raw, "Token"); ok {
		tag, err := unitVariant(inner)
		if err != nil {
			return errorInfo{}, fmt.Errorf("token error: %w", err)
		}
		return errorInfo{section: "Token", name: tag, description: "Token error"}, nil
	}
	if inner, ok := variant(raw, "Arithmetic"); ok {
		tag, err := unitVariant(inner)
		if err != nil {
			return errorInfo{}, fmt.Errorf("arithmetic error: %w", err)
		}
		return errorInfo{section: "Arithmetic", name: tag, description: "Arithmetic error"}, nil
	}
	return unknownError, nil
}

func (d *Decoder) describeModuleError(ctx context.Context, inner any) (errorInfo, error) {
	if d.resolver == nil {
		return errorInfo{}, fmt.Errorf("no metadata resolver configured")
	}
	moduleErr, err := parseModuleError(inner)
	if err != nil {
		return errorInfo{}, err
	}
	meta, err := d.resolver.ResolveModuleError(ctx, moduleErr)
	if err != nil {
		return errorInfo{}, fmt.Errorf("resolve module error %d/%d: %w", moduleErr.Index, moduleErr.Error, err)
	}

	description := strings.TrimSpace(strings.Join(meta.Docs, " "))
	if description == "" {
		description = noDetails
	}
	return errorInfo{section: meta.Section, name: meta.Method, description: description}, nil
}

// parseModuleError reads {index, error}. The error code is either a number or
// the 4-byte little-endian hex blob, of which only the first byte is significant.
func parseModuleError(v any) (model.ModuleError, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return model.ModuleError{}, fmt.Errorf("module error: unexpected shape %T", v)
	}
	index, err := toUint8(m["index"])
	if err != nil {
		return model.ModuleError{}, fmt.Errorf("module error index: %w", err)
	}

	var code uint8
	switch raw := m["error"].(type) {
	case string:
		if strings.HasPrefix(raw, "0x") {
			b, err := hexutil.Decode(raw)
			if err != nil || len(b) == 0 {
				return model.ModuleError{}, fmt.Errorf("module error code %q: invalid hex", raw)
			}
			code = b[0]
		} else if code, err = toUint8(raw); err != nil {
			return model.ModuleError{}, fmt.Errorf("module error code: %w", err)
		}
	case []any:
		if len(raw) == 0 {
			return model.ModuleError{}, fmt.Errorf("module error code: empty")
		}
		if code, err = toUint8(raw[0]); err != nil {
			return model.ModuleError{}, fmt.Errorf("module error code: %w", err)
		}
	default:
		if code, err = toUint8(raw); err != nil {
			return model.ModuleError{}, fmt.Errorf("module error code: %w", err)
		}
	}
	return model.ModuleError{Index: index, Error: code}, nil
}
