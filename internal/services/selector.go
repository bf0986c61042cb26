package services

import "math/big"

// SelectWinner maps randomValue onto one slot of entrants.
// entrants must not be empty.
func SelectWinner(randomValue *big.Int, entrants []string) (int, string) {
	n := big.NewInt(int64(len(entrants)))
	index := int(new(big.Int).Mod(randomValue, n).Int64())
	return index, entrants[index]
}
