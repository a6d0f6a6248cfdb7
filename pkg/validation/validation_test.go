package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "dim/pkg/domain-errors"
)

type sample struct {
	Issuer   string   `json:"issuer" validate:"required,eth_addr"`
	Domain   string   `json:"domain" validate:"required,hostname"`
	Locator  string   `json:"data_locator" validate:"omitempty,locator"`
	Decision string   `json:"decision" validate:"omitempty,oneof=approve reject"`
	Note     string   `json:"note" validate:"omitempty,notblank"`
	Tags     []string `json:"tags" validate:"max=2"`
}

func valid() sample {
	return sample{
		Issuer: "0x2c7536e3605d9c16a7a3d7b1898e529396a65c23",
		Domain: "bank.example",
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(valid()))

	cases := map[string]struct {
		mutate func(*sample)
		msg    string
	}{
		"missing issuer": {func(s *sample) { s.Issuer = "" }, "issuer is required"},
		"bad issuer":     {func(s *sample) { s.Issuer = "0x12" }, "issuer must be a 0x-prefixed 20-byte hex address"},
		"bad domain":     {func(s *sample) { s.Domain = "not a domain" }, "domain must be a valid domain name"},
		"bad locator":    {func(s *sample) { s.Locator = "https://x" }, "data_locator must be an ipfs:// locator"},
		"bad decision":   {func(s *sample) { s.Decision = "maybe" }, "decision must be one of [approve reject]"},
		"blank note":     {func(s *sample) { s.Note = "   " }, "note must not be blank"},
		"too many tags":  {func(s *sample) { s.Tags = []string{"a", "b", "c"} }, "tags must be at most 2"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s := valid()
			tc.mutate(&s)
			err := Validate(s)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Equal(t, tc.msg, err.Error())
		})
	}
}
