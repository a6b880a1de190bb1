package analytics

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"trueAnalytics/internal/model"
)

// call carries one event through its route.
type call struct {
	d      *Dispatcher
	ctx    context.Context
	event  model.BlockchainEvent
	common map[string]any
}

func (c *call) param(name string) any {
	v, _ := c.event.Param(name)
	return v
}

func (c *call) text(name string) string {
	v, ok := c.event.Param(name)
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func (c *call) track(label string, props map[string]any) error {
	if err := c.d.sink.Track(c.ctx, c.event.Signer, label, with(c.common, props)); err != nil {
		return fmt.Errorf("track %q: %w", label, err)
	}
	return nil
}

type route func(c *call) error

var routes = map[string]route{
	"AttestationCreated": trackAttestationCreated,
	"AttestationUpdated": trackAttestationUpdated,
	"IssuerCreated":      trackIssuerCreated,
	"SchemaCreated":      trackSchemaCreated,
	"AlgorithmAdded":     trackAlgorithmAdded,
	"AlgoResult":         trackAlgoResult,
	"Transfer":           trackTokenTransaction,
	"Reserved":           trackTokenTransaction,
	"Unreserved":         trackTokenTransaction,
}

type attestation struct {
	attestedTo string
	issuerHash string
	issuerName string
	schemaHash string
	chainType  string
}

// attestationProps builds the track properties shared by the created and updated routes.
func attestationProps(c *call) (map[string]any, attestation) {
	a := attestation{
		attestedTo: accountAddress(c.event.Param("Attested To")),
		issuerHash: c.text("Issuer Hash"),
		schemaHash: c.text("Schema"),
	}
	a.issuerName = c.d.issuerName(c.ctx, a.issuerHash)
	a.chainType = chainTypeOf(a.attestedTo)

	return map[string]any{
		"issuerHash":       c.param("Issuer Hash"),
		"issuerName":       a.issuerName,
		"attestedTo":       c.param("Attested To"),
		"schemaHash":       c.param("Schema"),
		"schemaName":       a.schemaHash,
		"chainType":        a.chainType,
		"attestationIndex": c.param("Attestation Index"),
		"attestationData":  c.param("Attestation"),
	}, a
}

func trackAttestationCreated(c *call) error {
	props, a := attestationProps(c)
	if err := c.track("Attestation Created", props); err != nil {
		return err
	}
	if a.attestedTo == "" {
		return nil
	}

	date := isoDate(c.event.Timestamp)
	sink := c.d.sink
	if err := sink.SetOnce(c.ctx, a.attestedTo, map[string]any{
		"First Attestation Date": date,
		"User Type":              "Attestation Recipient",
		"First Chain Type":       a.chainType,
	}); err != nil {
		return fmt.Errorf("set once %s: %w", a.attestedTo, err)
	}
	if err := sink.Set(c.ctx, a.attestedTo, map[string]any{
		"Last Attestation Date": date,
		"$last_seen":            date,
		"Last Issuer":           a.issuerName,
		"Last Schema":           a.schemaHash,
	}); err != nil {
		return fmt.Errorf("set %s: %w", a.attestedTo, err)
	}
	if err := sink.Increment(c.ctx, a.attestedTo, map[string]float64{
		"Attestation Count":                 1,
		"Attestations On " + a.chainType:    1,
		"Attestations From " + a.issuerHash: 1,
	}); err != nil {
		return fmt.Errorf("increment %s: %w", a.attestedTo, err)
	}
	if err := sink.Union(c.ctx, a.attestedTo, map[string][]string{
		"Associated Issuers": {a.issuerHash},
		"Associated Schemas": {a.schemaHash},
	}); err != nil {
		return fmt.Errorf("union %s: %w", a.attestedTo, err)
	}
	return nil
}

func trackAttestationUpdated(c *call) error {
	props, a := attestationProps(c)
	if err := c.track("Attestation Updated", props); err != nil {
		return err
	}
	if a.attestedTo == "" {
		return nil
	}

	date := isoDate(c.event.Timestamp)
	if err := c.d.sink.Set(c.ctx, a.attestedTo, map[string]any{
		"Last Attestation Update Date": date,
		"$last_seen":                   date,
	}); err != nil {
		return fmt.Errorf("set %s: %w", a.attestedTo, err)
	}
	if err := c.d.sink.Increment(c.ctx, a.attestedTo, map[string]float64{"Attestation Updates Count": 1}); err != nil {
		return fmt.Errorf("increment %s: %w", a.attestedTo, err)
	}
	return nil
}

func trackIssuerCreated(c *call) error {
	issuerHash := c.text("Hash")
	if err := c.track("Issuer Created", map[string]any{
		"issuerHash":  c.param("Hash"),
		"issuerName":  c.param("Name"),
		"controllers": c.param("Controllers"),
	}); err != nil {
		return err
	}
	if issuerHash == "" {
		return nil
	}

	issuerID := "issuer:" + issuerHash
	if err := c.d.sink.Set(c.ctx, issuerID, map[string]any{
		"Issuer Name":   c.param("Name"),
		"Creation Date": isoDate(c.event.Timestamp),
		"Controllers":   c.param("Controllers"),
		"User Type":     "Issuer",
	}); err != nil {
		return fmt.Errorf("set %s: %w", issuerID, err)
	}
	return nil
}

func trackSchemaCreated(c *call) error {
	return c.track("Schema Created", map[string]any{
		"schemaHash": c.param("Schema Hash"),
		"schema":     c.param("Schema"),
		"issuerHash": c.param("Issuer Hash"),
	})
}

func trackAlgorithmAdded(c *call) error {
	return c.track("Algorithm Added", map[string]any{
		"algorithmId": c.param("Algorithm ID"),
		"schemas":     splitList(c.text("Schemas")),
	})
}

func trackAlgoResult(c *call) error {
	return c.track("Reputation Score Updated", map[string]any{
		"result":     c.param("Algorithm Result"),
		"issuerHash": c.param("Issuer Hash"),
		"attestedTo": c.param("Account Id"),
	})
}

func trackTokenTransaction(c *call) error {
	from := c.param("From")
	if from == nil || from == "" {
		from = c.param("Who")
	}
	return c.track("Token Transaction", map[string]any{
		"type":   c.event.EventName,
		"from":   from,
		"to":     c.param("To"),
		"amount": c.param("Amount"),
	})
}

var whitespace = regexp.MustCompile(`\s+`)

func trackGeneric(c *call) error {
	params := make(map[string]any, len(c.event.Parameters))
	for _, p := range c.event.Parameters {
		params[whitespace.ReplaceAllString(p.Name, "_")] = p.Value
	}
	return c.track("Blockchain Event: "+c.event.EventName, map[string]any{
		"parameters": params,
	})
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
