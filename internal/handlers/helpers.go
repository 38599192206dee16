package handlers

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

func parseAddress(value string) (common.Address, bool) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, false
	}
	return common.HexToAddress(trimmed), true
}
