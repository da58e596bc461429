package config

import "testing"

func TestNormalize_InvoicePrefix(t *testing.T) {
	cases := map[string]string{
		"00000":         "00000",
		"ab12cd34":      "1234",
		"123456789012":  "1234567890", // capped at ten digits
		"":              "",
		"no-digits-at-": "",
	}
	for input, expected := range cases {
		conf := &Config{}
		conf.Merchant.InvoicePrefix = input
		conf.Normalize()
		if conf.Merchant.InvoicePrefix != expected {
			t.Errorf("prefix %q normalized to %q, expected %q", input, conf.Merchant.InvoicePrefix, expected)
		}
	}
}

func TestNormalize_SecretKeyWhitespace(t *testing.T) {
	conf := &Config{}
	conf.Merchant.SecretKey = "  TOP\tSECRET\nKEY  "
	conf.Normalize()
	if conf.Merchant.SecretKey != "TOPSECRETKEY" {
		t.Errorf("secret = %q", conf.Merchant.SecretKey)
	}
}
