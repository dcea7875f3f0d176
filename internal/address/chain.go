package address

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/shipbatch/internal/logging"
	"github.com/go-playground/validator/v10"
)

// Validator is one strategy in the validation chain.
// A non-nil error means the strategy could not produce a verdict and the
// chain should fall through to the next one.
type Validator interface {
	Name() string
	Validate(ctx context.Context, a Address) (Result, error)
}

// Chain runs validators in order and returns the first verdict produced.
type Chain struct {
	validators []Validator
	schema     *validator.Validate
}

// NewChain creates a chain that tries each validator in order.
// Heuristic and Basic are appended when not already present so the chain
// always ends in strategies that cannot fail.
func NewChain(vs ...Validator) *Chain {
	var hasHeuristic, hasBasic bool
	for _, v := range vs {
		switch v.(type) {
		case Heuristic, *Heuristic:
			hasHeuristic = true
		case Basic, *Basic:
			hasBasic = true
		}
	}
	if !hasHeuristic {
		vs = append(vs, Heuristic{})
	}
	if !hasBasic {
		vs = append(vs, Basic{})
	}
	return &Chain{validators: vs, schema: validator.New()}
}

// Providers returns the strategy names in the order they are tried.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.validators))
	for i, v := range c.validators {
		names[i] = v.Name()
	}
	return names
}

// Validate checks a against the schema, then runs the strategies until one
// returns a verdict. It never fails: if every strategy errors the address is
// reported as a warning.
func (c *Chain) Validate(ctx context.Context, a Address) Result {
	if msgs := c.checkSchema(a); len(msgs) > 0 {
		return invalid(msgs...)
	}

	logger := logging.FromContext(ctx)
	for _, v := range c.validators {
		res, err := runStrategy(ctx, v, a)
		if err == nil {
			res.Provider = v.Name()
			if res.Status == StatusInvalid {
				res.SuggestedAddress = nil
			}
			if res.Messages == nil {
				res.Messages = []string{}
			}
			return res
		}
		logger.Warn("address provider failed, falling back",
			"provider", v.Name(),
			"error", err,
		)
	}

	return Result{
		Status:   StatusWarning,
		Messages: []string{"Validation service unavailable"},
	}
}

// runStrategy calls v, converting a panic into an error so one broken
// provider cannot take down the chain.
func runStrategy(ctx context.Context, v Validator, a Address) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", v.Name(), r)
		}
	}()
	return v.Validate(ctx, a)
}

// checkSchema rejects structurally impossible input such as over-long fields.
// Missing required fields are left to the strategies, which report them in
// the user-facing wording.
func (c *Chain) checkSchema(a Address) []string {
	err := c.schema.Struct(a)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s: must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: failed %s check", field, fe.Tag()))
		}
	}
	return msgs
}
