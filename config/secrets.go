// Copyright 2025 The mongodbee Authors
// SPDX-License-Identifier: Apache-2.0
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretResolver resolves a connection URI, either returning it
// verbatim (no secretRef configured) or fetching it from a secrets
// backend.
type SecretResolver interface {
	ResolveURI(ctx context.Context, conn ConnectionConfig) (string, error)
}

// staticResolver returns ConnectionConfig.URI unchanged; used when no
// SecretRef is configured, so callers never need a live AWS session in
// tests or local development.
type staticResolver struct{}

func (staticResolver) ResolveURI(ctx context.Context, conn ConnectionConfig) (string, error) {
	if conn.SecretRef != nil {
		return "", fmt.Errorf("config: secretRef %s configured but no SecretResolver provided", conn.SecretRef.ARN)
	}
	return conn.URI, nil
}

// StaticResolver is the zero-dependency SecretResolver used when the
// configuration never references a secret.
func StaticResolver() SecretResolver { return staticResolver{} }

// AWSSecretsResolver resolves ConnectionConfig.SecretRef against AWS
// Secrets Manager, caching decoded secrets for ttl.
type AWSSecretsResolver struct {
	client *secretsmanager.Client
	ttl    time.Duration

	mu    sync.RWMutex
	cache map[string]cachedSecret
}

type cachedSecret struct {
	values    map[string]string
	expiresAt time.Time
}

// NewAWSSecretsResolver loads the default AWS config (optionally
// pinned to region) and constructs a resolver caching secrets for ttl
// (5 minutes if ttl <= 0).
func NewAWSSecretsResolver(ctx context.Context, region string, ttl time.Duration) (*AWSSecretsResolver, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("config: failed to load AWS config: %w", err)
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AWSSecretsResolver{
		client: secretsmanager.NewFromConfig(cfg),
		ttl:    ttl,
		cache:  make(map[string]cachedSecret),
	}, nil
}

// ResolveURI returns conn.URI unchanged when no SecretRef is set,
// otherwise fetches and decodes the referenced secret's Key field.
func (r *AWSSecretsResolver) ResolveURI(ctx context.Context, conn ConnectionConfig) (string, error) {
	if conn.SecretRef == nil {
		return conn.URI, nil
	}

	values, err := r.getSecret(ctx, conn.SecretRef.ARN)
	if err != nil {
		return "", err
	}
	value, ok := values[conn.SecretRef.Key]
	if !ok {
		return "", fmt.Errorf("config: secret %s has no key %q", conn.SecretRef.ARN, conn.SecretRef.Key)
	}
	return value, nil
}

func (r *AWSSecretsResolver) getSecret(ctx context.Context, arn string) (map[string]string, error) {
	r.mu.RLock()
	entry, ok := r.cache[arn]
	r.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.values, nil
	}

	out, err := r.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(arn)})
	if err != nil {
		return nil, fmt.Errorf("config: failed to fetch secret %s: %w", arn, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("config: secret %s has no string value", arn)
	}

	var values map[string]string
	if err := json.Unmarshal([]byte(*out.SecretString), &values); err != nil {
		values = map[string]string{"value": *out.SecretString}
	}

	r.mu.Lock()
	r.cache[arn] = cachedSecret{values: values, expiresAt: time.Now().Add(r.ttl)}
	r.mu.Unlock()
	return values, nil
}
