package servicebus

import (
	"context"
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// NewServiceBus connects to a namespace with the default Azure credential chain.
func NewServiceBus(_ context.Context, namespace string) (*azservicebus.Client, error) {
	if namespace == "" {
		return nil, errors.New("service bus namespace not configured")
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azservicebus.NewClient(namespace, cred, nil)
}
