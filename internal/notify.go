package internal

import (
	"errors"
	"regexp"
	"strings"

	"epaybg/entity"
)

// Verification failures for inbound notifications. Each gate in
// VerifyAndParse fails with exactly one of these; none is retryable here,
// redelivery is governed by the remote service's own retry policy.
var (
	ErrInvalidToken          = errors.New("notification token mismatch")
	ErrMalformedNotification = errors.New("notification missing encoded or checksum")
	ErrSignatureMismatch     = errors.New("notification checksum verification failed")
)

// statusLine is the grammar of one status record inside a decoded
// notification body. The PAY_TIME/STAN/BCODE group is present only for
// paid invoices.
var statusLine = regexp.MustCompile(`^INVOICE=(\d+):STATUS=(PAID|DENIED|EXPIRED)(:PAY_TIME=(\d+):STAN=([0-9a-zA-Z]+):BCODE=([0-9a-zA-Z]+))?$`)

// IpnToken derives the out-of-band request token a genuine callback must
// carry in its query string.
func IpnToken(serverSalt, secretKey string) string {
	return digest(MD5, []byte(serverSalt+secretKey))
}

// VerifyAndParse runs the hard gates over a raw notification in order:
// token, field presence, checksum, Base64 decode. Only then is the body
// split into status records. Lines that do not match the record grammar
// are skipped silently; an empty record list is not an error.
func VerifyAndParse(notification *entity.IpnNotification, expectedToken, secretKey string, enforceToken bool) ([]entity.StatusRecord, error) {
	if enforceToken && (notification.Token == "" || notification.Token != expectedToken) {
		return nil, ErrInvalidToken
	}
	if notification.Encoded == "" || notification.Checksum == "" {
		return nil, ErrMalformedNotification
	}

	checksum := Sign(SHA1, []byte(notification.Encoded), []byte(secretKey))
	if checksum != notification.Checksum {
		return nil, ErrSignatureMismatch
	}

	body, err := DecodeBody(notification.Encoded)
	if err != nil {
		return nil, ErrMalformedNotification
	}

	var records []entity.StatusRecord
	for _, line := range strings.Split(body, "\n") {
		groups := statusLine.FindStringSubmatch(line)
		if groups == nil {
			continue
		}
		records = append(records, entity.StatusRecord{
			Invoice: groups[1],
			Status:  entity.Status(groups[2]),
			PayTime: groups[4],
			Stan:    groups[5],
			BCode:   groups[6],
		})
	}
	return records, nil
}
