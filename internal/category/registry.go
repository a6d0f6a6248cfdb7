// Package category is the static catalog of disclosable field groups.
//
// Every category implicitly carries the holder address field, and the field
// lists of distinct categories never overlap otherwise. Unknown ids are a hard
// error so that a typo can never widen or narrow a disclosure silently.
package category

import (
	"fmt"
	"slices"
	"sort"

	dErrors "dim/pkg/domain-errors"
)

// ID identifies a data category.
type ID string

// Field names of the holder data set.
const (
	FieldAccount          = "account"
	FieldName             = "name"
	FieldProfileImage     = "profileImage"
	FieldCredentialCount  = "credentialCount"
	FieldCredentials      = "credentials"
	FieldRegistrationDate = "registrationDate"
	FieldIssuerDetails    = "issuerDetails"
)

// HolderAddressField is included in every projection.
const HolderAddressField = FieldAccount

const (
	BasicIdentity       ID = "basic_identity"
	WalletAddress       ID = "wallet_address"
	CredentialsCount    ID = "credentials_count"
	SpecificCredentials ID = "specific_credentials"
	RegistrationDate    ID = "registration_date"
	IssuerInformation   ID = "issuer_information"
)

// Category is one disclosable field group.
type Category struct {
	ID          ID       `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Fields      []string `json:"fields"`
	Required    bool     `json:"required"`
}

var catalog = []Category{
	{
		ID:          BasicIdentity,
		Name:        "Basic Identity",
		Description: "Name and profile information",
		Fields:      []string{FieldName, FieldProfileImage},
	},
	{
		ID:          WalletAddress,
		Name:        "Wallet Address",
		Description: "Your wallet address",
		Fields:      []string{FieldAccount},
		Required:    true,
	},
	{
		ID:          CredentialsCount,
		Name:        "Credentials Count",
		Description: "Number of verified credentials",
		Fields:      []string{FieldCredentialCount},
	},
	{
		ID:          SpecificCredentials,
		Name:        "Specific Credentials",
		Description: "Detailed credential information",
		Fields:      []string{FieldCredentials},
	},
	{
		ID:          RegistrationDate,
		Name:        "Registration Date",
		Description: "When you registered your identity",
		Fields:      []string{FieldRegistrationDate},
	},
	{
		ID:          IssuerInformation,
		Name:        "Issuer Information",
		Description: "Information about credential issuers",
		Fields:      []string{FieldIssuerDetails},
	},
}

var byID = func() map[ID]Category {
	m := make(map[ID]Category, len(catalog))
	for _, c := range catalog {
		m[c.ID] = c
	}
	return m
}()

// All returns the catalog in declaration order.
func All() []Category {
	out := make([]Category, len(catalog))
	for i, c := range catalog {
		out[i] = clone(c)
	}
	return out
}

// Get returns a category by id.
func Get(id ID) (Category, error) {
	c, ok := byID[id]
	if !ok {
		return Category{}, unknown(id)
	}
	return clone(c), nil
}

// IsKnown reports whether id is in the catalog.
func IsKnown(id ID) bool {
	_, ok := byID[id]
	return ok
}

// Required returns the ids of categories that are always disclosed.
func Required() []ID {
	var ids []ID
	for _, c := range catalog {
		if c.Required {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// Validate fails with CodeUnknownCategory on the first id not in the catalog.
func Validate(ids []ID) error {
	for _, id := range ids {
		if !IsKnown(id) {
			return unknown(id)
		}
	}
	return nil
}

// FieldsFor returns the union of fields for ids, always including the holder address.
// The result is sorted.
func FieldsFor(ids []ID) ([]string, error) {
	set := map[string]struct{}{HolderAddressField: {}}
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, unknown(id)
		}
		for _, f := range c.Fields {
			set[f] = struct{}{}
		}
	}
	fields := make([]string, 0, len(set))
	for f := range set {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields, nil
}

// Normalize dedupes and sorts ids. It does not validate them.
func Normalize(ids []ID) []ID {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// Missing returns the ids in want that are not in have.
func Missing(want, have []ID) []ID {
	var missing []ID
	for _, id := range Normalize(want) {
		if !slices.Contains(have, id) {
			missing = append(missing, id)
		}
	}
	return missing
}

func clone(c Category) Category {
	c.Fields = slices.Clone(c.Fields)
	return c
}

func unknown(id ID) error {
	return dErrors.New(dErrors.CodeUnknownCategory, fmt.Sprintf("unknown data category: %q", id))
}
