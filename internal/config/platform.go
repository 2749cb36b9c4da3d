package config

import (
	"math/rand/v2"
	"strconv"

	"github.com/xbrlus/xbrlapi/internal/constants"
)

// PlatformWithSuffix appends two random two-digit numbers to platform, so
// that clients sharing an account keep separate refresh token lineages.
func PlatformWithSuffix(platform string) string {
	return platform + strconv.Itoa(suffixNumber()) + strconv.Itoa(suffixNumber())
}

func suffixNumber() int {
	//nolint:gosec // not security sensitive
	return constants.PlatformSuffixMin + rand.IntN(constants.PlatformSuffixMax-constants.PlatformSuffixMin+1)
}
