package crypto

import (
	"sync"
	"testing"

	"github.com/eth2030/presale/core/types"
)

func TestKeccak256Vectors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		parts [][]byte
		want  string
	}{
		{"empty", nil, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"},
		{"hello", [][]byte{[]byte("hello")}, "1c8aff950685c2ed4bc3174f3472287b56d9517b9c948127319a09a7a36deac8"},
		{"split", [][]byte{[]byte("hel"), nil, []byte("lo")}, "1c8aff950685c2ed4bc3174f3472287b56d9517b9c948127319a09a7a36deac8"},
		{"transfer topic", [][]byte{[]byte("Transfer(address,address,uint256)")}, "ddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"},
	} {
		if got := Keccak256Hash(tc.parts...); got != types.HexToHash(tc.want) {
			t.Errorf("%s: got %s", tc.name, got)
		}
	}
}

func TestKeccak256PooledHashersReset(t *testing.T) {
	want := Keccak256Hash([]byte("MINTER_ROLE"))
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				Keccak256Hash([]byte("noise"), []byte{byte(j)})
				if got := Keccak256Hash([]byte("MINTER_ROLE")); got != want {
					t.Errorf("hash drifted: %s", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}
