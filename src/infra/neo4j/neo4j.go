package neo4j

import (
	"context"
	"fmt"
	"log"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// KeyProperty guarda a chave natural do nó. Propriedades com "_" são
// internas e não voltam para o domínio.
const KeyProperty = "_key"

type Neo4jClient struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewNeo4jClient(uri string, username string, password string, database string) (*Neo4jClient, error) {
	auth := neo4j.NoAuth()
	if username != "" {
		auth = neo4j.BasicAuth(username, password, "")
	}

	driver, err := neo4j.NewDriverWithContext(uri, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		_ = driver.Close(context.Background())
		return nil, fmt.Errorf("failed to connect neo4j: %w", err)
	}

	log.Printf("Neo4j client initialized for database %q", database)

	return &Neo4jClient{driver: driver, database: database}, nil
}

// NewSession abre uma sessão no banco configurado. readOnly roteia para
// réplicas de leitura quando o cluster tiver.
func (c *Neo4jClient) NewSession(ctx context.Context, readOnly bool) neo4j.SessionWithContext {
	config := neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite}
	if readOnly {
		config.AccessMode = neo4j.AccessModeRead
	}
	if c.database != "" {
		config.DatabaseName = c.database
	}
	return c.driver.NewSession(ctx, config)
}

// EnsureConstraints cria a unicidade de chave natural por label.
func (c *Neo4jClient) EnsureConstraints(ctx context.Context, labels []string) error {
	session := c.NewSession(ctx, false)
	defer session.Close(ctx)

	for _, label := range labels {
		query := fmt.Sprintf(
			"CREATE CONSTRAINT %s_key_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
			label, label, KeyProperty,
		)
		result, err := session.Run(ctx, query, nil)
		if err != nil {
			return fmt.Errorf("failed to create constraint for label %s: %w", label, err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return fmt.Errorf("failed to create constraint for label %s: %w", label, err)
		}
	}

	return nil
}

func (c *Neo4jClient) HealthCheck(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

func (c *Neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}
