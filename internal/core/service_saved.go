package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/JonMunkholm/shipbatch/internal/address"
	"github.com/JonMunkholm/shipbatch/internal/core/parse"
	"github.com/JonMunkholm/shipbatch/internal/logging"
)

// payloads validates saved address and package input. Field names in
// messages are the JSON names.
var payloads = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// validationFailed converts validator errors to one VALIDATION_ERROR.
func validationFailed(err error) error {
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		return newError(KindInput, CodeValidationError, "Validation failed: %v", err)
	}
	msgs := make([]string, len(fes))
	for i, fe := range fes {
		msgs[i] = fieldMessage(fe)
	}
	return newError(KindInput, CodeValidationError, "Validation failed: %s", strings.Join(msgs, ", "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	}
	return fe.Field() + " is invalid"
}

// SavedAddressInput creates a saved address.
type SavedAddressInput struct {
	Type      AddressType `json:"type" validate:"omitempty,oneof=ship_from ship_to"`
	Label     string      `json:"label" validate:"max=100"`
	IsDefault bool        `json:"isDefault"`
	address.Address
}

// savedRequired returns the first missing required field of a saved
// address, or "" when all are present.
func savedRequired(label string, a address.Address) string {
	switch {
	case strings.TrimSpace(label) == "":
		return "Label is required"
	case strings.TrimSpace(a.Name) == "":
		return "Name is required"
	case strings.TrimSpace(a.Street1) == "":
		return "Street address is required"
	case strings.TrimSpace(a.City) == "":
		return "City is required"
	case strings.TrimSpace(a.State) == "":
		return "State is required"
	case strings.TrimSpace(a.Zip) == "":
		return "ZIP code is required"
	}
	return ""
}

// savedState normalizes a saved address state: a full name becomes its
// code, anything else is kept upper-cased so validation can flag it.
func savedState(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) <= 2 {
		return s
	}
	if code, ok := parse.StateCode(s); ok {
		return code
	}
	return s
}

func normalizeSaved(a *address.Address) {
	a.State = savedState(a.State)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	if a.Country == "" {
		a.Country = "US"
	}
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
}

// revalidate runs the provider chain and records the verdict. The address
// is saved whatever the verdict.
func (s *Service) revalidate(ctx context.Context, sa *SavedAddress) {
	res := s.validator.Validate(ctx, sa.Address)
	sa.Validated = res.Status == address.StatusValid
	sa.ValidatedAddress = res.SuggestedAddress
}

// CreateSavedAddress validates and stores a new saved address.
func (s *Service) CreateSavedAddress(ctx context.Context, in SavedAddressInput) (*SavedAddress, error) {
	if msg := savedRequired(in.Label, in.Address); msg != "" {
		return nil, newError(KindInput, CodeValidationError, "%s", msg)
	}
	if err := payloads.Struct(in); err != nil {
		return nil, validationFailed(err)
	}

	now := s.now()
	sa := &SavedAddress{
		ID:        uuid.NewString(),
		UserID:    UserIDFromContext(ctx),
		Type:      in.Type,
		Label:     strings.TrimSpace(in.Label),
		IsDefault: in.IsDefault,
		Address:   in.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if sa.Type == "" {
		sa.Type = AddressShipFrom
	}
	normalizeSaved(&sa.Address)
	s.revalidate(ctx, sa)

	if err := s.store.CreateAddress(ctx, sa); err != nil {
		return nil, fmt.Errorf("create saved address: %w", err)
	}
	logging.FromContext(ctx).Info("saved address created", "id", sa.ID, "label", sa.Label)
	return sa, nil
}

// GetSavedAddress returns one saved address.
func (s *Service) GetSavedAddress(ctx context.Context, id string) (*SavedAddress, error) {
	sa, err := s.store.GetAddress(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, sa.UserID) {
		return nil, ErrAddressNotFound
	}
	return sa, nil
}

// ListSavedAddresses returns the caller's saved addresses, defaults first
// then by label. An empty type lists both types; search matches label,
// name, company, or city.
func (s *Service) ListSavedAddresses(ctx context.Context, t AddressType, search string) ([]SavedAddress, error) {
	if t != "" && t != AddressShipFrom && t != AddressShipTo {
		return nil, newError(KindInput, CodeValidationError, "Unknown address type %q", t)
	}
	out, err := s.store.ListAddresses(ctx, SavedFilter{
		UserID: UserIDFromContext(ctx),
		Type:   t,
		Search: strings.TrimSpace(search),
	})
	if err != nil {
		return nil, fmt.Errorf("list saved addresses: %w", err)
	}
	return out, nil
}

// SavedAddressPatch is a partial saved address update. Nil fields are left
// unchanged.
type SavedAddressPatch struct {
	Label     *string `json:"label"`
	IsDefault *bool   `json:"isDefault"`
	RecipientPatch
}

// UpdateSavedAddress applies a patch. Changing any street, city, state, or
// zip field re-runs validation.
func (s *Service) UpdateSavedAddress(ctx context.Context, id string, p SavedAddressPatch) (*SavedAddress, error) {
	sa, err := s.GetSavedAddress(ctx, id)
	if err != nil {
		return nil, err
	}
	before := sa.Address

	setString(&sa.Label, p.Label)
	if p.IsDefault != nil {
		sa.IsDefault = *p.IsDefault
	}
	p.RecipientPatch.apply(&sa.Address)
	normalizeSaved(&sa.Address)

	if msg := savedRequired(sa.Label, sa.Address); msg != "" {
		return nil, newError(KindInput, CodeValidationError, "%s", msg)
	}
	if err := payloads.Struct(SavedAddressInput{Type: sa.Type, Label: sa.Label, Address: sa.Address}); err != nil {
		return nil, validationFailed(err)
	}

	if locationChanged(before, sa.Address) {
		s.revalidate(ctx, sa)
	}
	sa.UpdatedAt = s.now()
	if err := s.store.UpdateAddress(ctx, sa); err != nil {
		return nil, fmt.Errorf("update saved address %s: %w", id, err)
	}
	logging.FromContext(ctx).Info("saved address updated", "id", id)
	return sa, nil
}

func locationChanged(a, b address.Address) bool {
	return a.Street1 != b.Street1 ||
		a.Street2 != b.Street2 ||
		a.City != b.City ||
		a.State != b.State ||
		a.Zip != b.Zip
}

// DeleteSavedAddress removes a saved address.
func (s *Service) DeleteSavedAddress(ctx context.Context, id string) error {
	if _, err := s.GetSavedAddress(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteAddress(ctx, id); err != nil {
		return fmt.Errorf("delete saved address %s: %w", id, err)
	}
	logging.FromContext(ctx).Info("saved address deleted", "id", id)
	return nil
}

// SetDefaultAddress makes id the only default of its type for its owner.
func (s *Service) SetDefaultAddress(ctx context.Context, id string) (*SavedAddress, error) {
	if _, err := s.GetSavedAddress(ctx, id); err != nil {
		return nil, err
	}
	sa, err := s.store.SetDefaultAddress(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("set default address %s: %w", id, err)
	}
	logging.FromContext(ctx).Info("default address set", "id", id, "type", sa.Type)
	return sa, nil
}

// DefaultShipFrom returns the caller's default ship-from address, or nil
// when none is set.
func (s *Service) DefaultShipFrom(ctx context.Context) (*SavedAddress, error) {
	sa, err := s.store.DefaultAddress(ctx, UserIDFromContext(ctx), AddressShipFrom)
	if errors.Is(err, ErrAddressNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("default ship-from: %w", err)
	}
	return sa, nil
}

// SavedPackageInput creates a saved package.
type SavedPackageInput struct {
	Label         string      `json:"label" validate:"required,max=100"`
	IsDefault     bool        `json:"isDefault"`
	Weight        float64     `json:"weight" validate:"gt=0"`
	WeightUnit    string      `json:"weightUnit" validate:"omitempty,oneof=oz lb"`
	Length        *float64    `json:"length" validate:"omitempty,gt=0"`
	Width         *float64    `json:"width" validate:"omitempty,gt=0"`
	Height        *float64    `json:"height" validate:"omitempty,gt=0"`
	DimensionUnit string      `json:"dimensionUnit" validate:"omitempty,oneof=in cm"`
	PackageType   PackageType `json:"packageType" validate:"omitempty,oneof=custom flat_rate_envelope flat_rate_box_small flat_rate_box_medium flat_rate_box_large"`
}

func (in SavedPackageInput) withDefaults() SavedPackageInput {
	in.Label = strings.TrimSpace(in.Label)
	if in.WeightUnit == "" {
		in.WeightUnit = "oz"
	}
	if in.DimensionUnit == "" {
		in.DimensionUnit = "in"
	}
	if in.PackageType == "" {
		in.PackageType = PackageCustom
	}
	return in
}

// CreateSavedPackage validates and stores a new saved package.
func (s *Service) CreateSavedPackage(ctx context.Context, in SavedPackageInput) (*SavedPackage, error) {
	in = in.withDefaults()
	if err := payloads.Struct(in); err != nil {
		return nil, validationFailed(err)
	}

	now := s.now()
	p := &SavedPackage{
		ID:            uuid.NewString(),
		UserID:        UserIDFromContext(ctx),
		Label:         in.Label,
		IsDefault:     in.IsDefault,
		Weight:        in.Weight,
		WeightUnit:    in.WeightUnit,
		Length:        in.Length,
		Width:         in.Width,
		Height:        in.Height,
		DimensionUnit: in.DimensionUnit,
		PackageType:   in.PackageType,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreatePackage(ctx, p); err != nil {
		return nil, fmt.Errorf("create saved package: %w", err)
	}
	logging.FromContext(ctx).Info("saved package created", "id", p.ID, "label", p.Label)
	return p, nil
}

// GetSavedPackage returns one saved package.
func (s *Service) GetSavedPackage(ctx context.Context, id string) (*SavedPackage, error) {
	p, err := s.store.GetPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, p.UserID) {
		return nil, ErrPackageNotFound
	}
	return p, nil
}

// ListSavedPackages returns the caller's saved packages, defaults first then
// by label.
func (s *Service) ListSavedPackages(ctx context.Context) ([]SavedPackage, error) {
	out, err := s.store.ListPackages(ctx, SavedFilter{UserID: UserIDFromContext(ctx)})
	if err != nil {
		return nil, fmt.Errorf("list saved packages: %w", err)
	}
	return out, nil
}

// SavedPackagePatch is a partial saved package update.
type SavedPackagePatch struct {
	Label         *string      `json:"label"`
	IsDefault     *bool        `json:"isDefault"`
	Weight        *float64     `json:"weight"`
	WeightUnit    *string      `json:"weightUnit"`
	Length        *float64     `json:"length"`
	Width         *float64     `json:"width"`
	Height        *float64     `json:"height"`
	DimensionUnit *string      `json:"dimensionUnit"`
	PackageType   *PackageType `json:"packageType"`
}

// UpdateSavedPackage applies a patch and re-validates the result.
func (s *Service) UpdateSavedPackage(ctx context.Context, id string, patch SavedPackagePatch) (*SavedPackage, error) {
	p, err := s.GetSavedPackage(ctx, id)
	if err != nil {
		return nil, err
	}

	setString(&p.Label, patch.Label)
	setString(&p.WeightUnit, patch.WeightUnit)
	setString(&p.DimensionUnit, patch.DimensionUnit)
	if patch.IsDefault != nil {
		p.IsDefault = *patch.IsDefault
	}
	if patch.Weight != nil {
		p.Weight = *patch.Weight
	}
	if patch.Length != nil {
		p.Length = patch.Length
	}
	if patch.Width != nil {
		p.Width = patch.Width
	}
	if patch.Height != nil {
		p.Height = patch.Height
	}
	if patch.PackageType != nil {
		p.PackageType = *patch.PackageType
	}

	in := SavedPackageInput{
		Label:         p.Label,
		Weight:        p.Weight,
		WeightUnit:    p.WeightUnit,
		Length:        p.Length,
		Width:         p.Width,
		Height:        p.Height,
		DimensionUnit: p.DimensionUnit,
		PackageType:   p.PackageType,
	}
	if err := payloads.Struct(in); err != nil {
		return nil, validationFailed(err)
	}

	p.UpdatedAt = s.now()
	if err := s.store.UpdatePackage(ctx, p); err != nil {
		return nil, fmt.Errorf("update saved package %s: %w", id, err)
	}
	logging.FromContext(ctx).Info("saved package updated", "id", id)
	return p, nil
}

// DeleteSavedPackage removes a saved package.
func (s *Service) DeleteSavedPackage(ctx context.Context, id string) error {
	if _, err := s.GetSavedPackage(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeletePackage(ctx, id); err != nil {
		return fmt.Errorf("delete saved package %s: %w", id, err)
	}
	logging.FromContext(ctx).Info("saved package deleted", "id", id)
	return nil
}

// SetDefaultPackage makes id the owner's only default package.
func (s *Service) SetDefaultPackage(ctx context.Context, id string) (*SavedPackage, error) {
	if _, err := s.GetSavedPackage(ctx, id); err != nil {
		return nil, err
	}
	p, err := s.store.SetDefaultPackage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("set default package %s: %w", id, err)
	}
	logging.FromContext(ctx).Info("default package set", "id", id)
	return p, nil
}
