package analytics

import (
	"sort"
	"strings"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
)

// alsoBoughtLimit caps the ranked list
const alsoBoughtLimit = 10

// AlsoBoughtInput is the raw data behind the also-bought widget
type AlsoBoughtInput struct {
	// Holders is the sample of top holders of the token
	Holders []string
	// Holdings are every non-zero balance of the sampled holders
	Holdings []entities.Holding
}

// AlsoBoughtToken is a token shared by sampled holders
type AlsoBoughtToken struct {
	Address string  `json:"address"`
	Holders int     `json:"holders"`
	Percent float64 `json:"percent"`
}

// AlsoBought ranks other tokens held by a token's top holders
type AlsoBought struct {
	SampledHolders int               `json:"sampled_holders"`
	Tokens         []AlsoBoughtToken `json:"tokens"`
}

// DeriveAlsoBought counts, per other token, how many sampled holders also hold it
func DeriveAlsoBought(in AlsoBoughtInput, req Request) AlsoBought {
	sampled := make(map[string]bool, len(in.Holders))
	for _, h := range in.Holders {
		sampled[strings.ToLower(h)] = true
	}

	result := AlsoBought{
		SampledHolders: len(sampled),
		Tokens:         make([]AlsoBoughtToken, 0),
	}
	if len(sampled) == 0 {
		return result
	}

	self := strings.ToLower(req.Token)
	sharedBy := make(map[string]map[string]bool)
	for _, h := range in.Holdings {
		token := strings.ToLower(h.TokenAddress)
		account := strings.ToLower(h.Account)
		if token == self || !sampled[account] || h.Balance == nil || h.Balance.Sign() <= 0 {
			continue
		}
		if sharedBy[token] == nil {
			sharedBy[token] = make(map[string]bool)
		}
		sharedBy[token][account] = true
	}

	for token, accounts := range sharedBy {
		result.Tokens = append(result.Tokens, AlsoBoughtToken{
			Address: token,
			Holders: len(accounts),
			Percent: float64(len(accounts)) * 100 / float64(len(sampled)),
		})
	}

	sort.Slice(result.Tokens, func(i, j int) bool {
		if result.Tokens[i].Holders != result.Tokens[j].Holders {
			return result.Tokens[i].Holders > result.Tokens[j].Holders
		}
		return result.Tokens[i].Address < result.Tokens[j].Address
	})
	if len(result.Tokens) > alsoBoughtLimit {
		result.Tokens = result.Tokens[:alsoBoughtLimit]
	}

	return result
}
