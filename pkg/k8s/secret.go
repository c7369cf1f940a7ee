// Package k8s reads service configuration from Kubernetes.
package k8s

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// DefaultSecretKey is the data key read when none is configured.
const DefaultSecretKey = "jwt-secret"

// SecretSource reads values from Kubernetes Secrets.
type SecretSource struct {
	client kubernetes.Interface
}

// NewSecretSource creates a SecretSource.
func NewSecretSource(client kubernetes.Interface) *SecretSource {
	return &SecretSource{client: client}
}

// Read returns the value stored under key in the Secret namespace/name.
func (s *SecretSource) Read(ctx context.Context, namespace, name, key string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("secret name is required")
	}
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	if key == "" {
		key = DefaultSecretKey
	}

	secret, err := s.client.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret %s/%s: %w", namespace, name, err)
	}

	value, ok := secret.Data[key]
	if !ok {
		return nil, fmt.Errorf("secret %s/%s has no key %q", namespace, name, key)
	}
	if len(value) == 0 {
		return nil, fmt.Errorf("secret %s/%s key %q is empty", namespace, name, key)
	}
	return value, nil
}
