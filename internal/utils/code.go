package utils

import (
	"crypto/rand"
	"math/big"
	"time"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomCode returns n characters drawn uniformly from A-Z and 0-9.
func RandomCode(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range out {
		k, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = codeAlphabet[k.Int64()]
	}
	return string(out), nil
}

// TrackingNumber formats a booking tracking number: "SFX", the booking day
// as YYMMDD and six random characters, e.g. SFX261016K3P9QZ.
func TrackingNumber(at time.Time) (string, error) {
	code, err := RandomCode(6)
	if err != nil {
		return "", err
	}
	return "SFX" + at.UTC().Format("060102") + code, nil
}

// ReceiptNumber formats a POS receipt number such as RCP-20261016-7GQ2LM.
func ReceiptNumber(at time.Time) (string, error) {
	code, err := RandomCode(6)
	if err != nil {
		return "", err
	}
	return "RCP-" + at.UTC().Format("20060102") + "-" + code, nil
}
