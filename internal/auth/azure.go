package auth

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// CognitiveServicesScope is the token scope accepted by Azure OpenAI endpoints.
const CognitiveServicesScope = "https://cognitiveservices.azure.com/.default"

// newDefaultCredential is replaced in tests.
var newDefaultCredential = func() (azcore.TokenCredential, error) {
	return azidentity.NewDefaultAzureCredential(nil)
}

// Azure returns a provider that requests Cognitive Services tokens from cred.
// The credential caches and refreshes tokens itself.
func Azure(cred azcore.TokenCredential) TokenProvider {
	return TokenProviderFunc(func(ctx context.Context) (string, error) {
		tok, err := cred.GetToken(ctx, policy.TokenRequestOptions{
			Scopes: []string{CognitiveServicesScope},
		})
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrAuthFailure, err)
		}
		return tok.Token, nil
	})
}

// New selects the credential source for the model endpoints. A non-empty
// apiKey is used as is; otherwise the Azure default credential chain
// (environment, workload identity, managed identity, Azure CLI) is used.
// With allowDummy, any failure degrades to DummyKey.
func New(apiKey string, allowDummy bool) (TokenProvider, error) {
	var p TokenProvider
	if apiKey != "" {
		p = Static(apiKey)
	} else {
		cred, err := newDefaultCredential()
		switch {
		case err == nil:
			p = Azure(cred)
		case allowDummy:
			p = Static("")
		default:
			return nil, fmt.Errorf("%w: %w", ErrAuthFailure, err)
		}
	}
	if allowDummy {
		p = WithDummyFallback(p)
	}
	return p, nil
}
