package ethereum

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ErrInvalidLog is returned for logs that do not decode as mixer events.
var ErrInvalidLog = errors.New("ethereum: invalid mixer log")

// Subset of the mixer contract ABI used for event sync and withdrawal checks.
const tornadoABIJSON = `[
  {"anonymous":false,"type":"event","name":"Deposit","inputs":[
    {"indexed":true,"name":"commitment","type":"bytes32"},
    {"indexed":false,"name":"leafIndex","type":"uint32"},
    {"indexed":false,"name":"timestamp","type":"uint256"}]},
  {"anonymous":false,"type":"event","name":"Withdrawal","inputs":[
    {"indexed":false,"name":"to","type":"address"},
    {"indexed":false,"name":"nullifierHash","type":"bytes32"},
    {"indexed":true,"name":"relayer","type":"address"},
    {"indexed":false,"name":"fee","type":"uint256"}]},
  {"type":"function","name":"isKnownRoot","stateMutability":"view",
    "inputs":[{"name":"_root","type":"bytes32"}],
    "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"isSpent","stateMutability":"view",
    "inputs":[{"name":"_nullifierHash","type":"bytes32"}],
    "outputs":[{"name":"","type":"bool"}]}
]`

var (
	initOnce sync.Once
	initErr  error

	tornadoABI abi.ABI
)

func loadABI() (*abi.ABI, error) {
	initOnce.Do(func() {
		var err error
		tornadoABI, err = abi.JSON(strings.NewReader(tornadoABIJSON))
		if err != nil {
			initErr = fmt.Errorf("ethereum: parse mixer ABI: %w", err)
		}
	})
	if initErr != nil {
		return nil, initErr
	}
	return &tornadoABI, nil
}
