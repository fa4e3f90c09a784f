package analytics

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// encodingName is used for every provider. Non-OpenAI models get a close approximation.
const encodingName = "cl100k_base"

// encoding loads the BPE ranks from the embedded loader so counting never touches the network.
var encoding = sync.OnceValues(func() (*tiktoken.Tiktoken, error) {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	return tiktoken.GetEncoding(encodingName)
})

// CountTokens returns the number of tokens in s.
func CountTokens(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	enc, err := encoding()
	if err != nil {
		return 0, fmt.Errorf("error loading %s encoding: %w", encodingName, err)
	}
	return len(enc.Encode(s, nil, nil)), nil
}
