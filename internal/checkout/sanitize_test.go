package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scentlab/storefront/internal/orders"
)

func validShipping() orders.ShippingInfo {
	return orders.ShippingInfo{
		Name:          "Jordan Tremblay",
		Email:         "Jordan.Tremblay@Example.com",
		StreetAddress: "12 Rue Principale",
		City:          "Gatineau",
		Province:      "qc",
		PostalCode:    "j8x 2a1",
		Country:       "Canada",
		Phone:         "819-555-0142",
	}
}

func TestSanitizeShippingInfoNormalizes(t *testing.T) {
	out, errs := SanitizeShippingInfo(validShipping())
	require.Nil(t, errs)

	assert.Equal(t, "jordan.tremblay@example.com", out.Email)
	assert.Equal(t, "QC", out.Province)
	assert.Equal(t, "J8X 2A1", out.PostalCode)
	assert.Equal(t, "(819) 555-0142", out.Phone)
}

func TestSanitizeShippingInfoStripsMarkup(t *testing.T) {
	in := validShipping()
	in.Name = `<script>alert(1)</script>Jordan`
	in.StreetAddress = `12 Rue onclick="x()" javascript:Principale`

	out, errs := SanitizeShippingInfo(in)
	require.Nil(t, errs)

	assert.Equal(t, "alert(1)Jordan", out.Name)
	assert.NotContains(t, out.StreetAddress, "onclick")
	assert.NotContains(t, out.StreetAddress, "javascript:")
}

func TestSanitizeShippingInfoAccumulatesAllErrors(t *testing.T) {
	in := orders.ShippingInfo{
		Email:      "not-an-email",
		Province:   "XX",
		PostalCode: "12345",
		Country:    "USA",
		Phone:      "555",
	}

	_, errs := SanitizeShippingInfo(in)
	require.NotNil(t, errs)

	for _, field := range []string{"name", "email", "streetAddress", "city", "province", "postalCode", "country", "phone"} {
		assert.Contains(t, errs, field)
	}
}

func TestSanitizeShippingInfoCountryMustBeCanada(t *testing.T) {
	in := validShipping()
	in.Country = "France"

	_, errs := SanitizeShippingInfo(in)
	require.NotNil(t, errs)
	assert.Contains(t, errs, "country")
	assert.Len(t, errs, 1)
}

func TestSanitizeShippingInfoPhoneOptional(t *testing.T) {
	in := validShipping()
	in.Phone = ""

	out, errs := SanitizeShippingInfo(in)
	require.Nil(t, errs)
	assert.Empty(t, out.Phone)
}

func TestSanitizeShippingInfoPhoneWithCountryCode(t *testing.T) {
	in := validShipping()
	in.Phone = "+1 (819) 555 0142"

	out, errs := SanitizeShippingInfo(in)
	require.Nil(t, errs)
	assert.Equal(t, "+1 (819) 555-0142", out.Phone)
}
