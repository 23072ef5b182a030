// Package dynamodb persists project documents in a single-table layout:
// one partition per project with METADATA, SOURCES, and OUTLINE items.
package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/application/ports"
	"github.com/relight14/micropaymentcrawler-sub002/domain/research"
	pkgerrors "github.com/relight14/micropaymentcrawler-sub002/pkg/errors"
)

const (
	skMetadata = "METADATA"
	skSources  = "SOURCES"
	skOutline  = "OUTLINE"

	entityProject = "PROJECT"
)

// ProjectRepository implements ports.ProjectRepository on DynamoDB.
type ProjectRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewProjectRepository creates a DynamoDB-backed project repository.
func NewProjectRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.ProjectRepository {
	return &ProjectRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

type metadataItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	ProjectID  string `dynamodbav:"ProjectID"`
	Title      string `dynamodbav:"Title"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
}

type sourcesItem struct {
	PK        string                  `dynamodbav:"PK"`
	SK        string                  `dynamodbav:"SK"`
	ProjectID string                  `dynamodbav:"ProjectID"`
	Sources   []research.SourceRecord `dynamodbav:"Sources"`
	UpdatedAt string                  `dynamodbav:"UpdatedAt"`
}

type outlineItem struct {
	PK        string                    `dynamodbav:"PK"`
	SK        string                    `dynamodbav:"SK"`
	ProjectID string                    `dynamodbav:"ProjectID"`
	Sections  []research.OutlineSection `dynamodbav:"Sections"`
	UpdatedAt string                    `dynamodbav:"UpdatedAt"`
}

func projectPK(projectID string) string {
	return fmt.Sprintf("PROJECT#%s", projectID)
}

// GetProject loads a project's metadata, sources, and outline with a single
// partition query.
func (r *ProjectRepository) GetProject(ctx context.Context, projectID string) (*research.ProjectDocument, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(projectPK(projectID)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to build query expression", err)
	}

	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, pkgerrors.NewNetworkError("failed to query project", err)
	}

	doc := &research.ProjectDocument{}
	foundMetadata := false

	for _, item := range out.Items {
		var sk string
		if err := attributevalue.Unmarshal(item["SK"], &sk); err != nil {
			continue
		}
		switch sk {
		case skMetadata:
			var meta metadataItem
			if err := attributevalue.UnmarshalMap(item, &meta); err != nil {
				return nil, pkgerrors.NewInternalError("failed to unmarshal project metadata", err)
			}
			doc.Project = research.Project{
				ID:        meta.ProjectID,
				Title:     meta.Title,
				CreatedAt: parseTime(meta.CreatedAt),
				UpdatedAt: parseTime(meta.UpdatedAt),
			}
			foundMetadata = true
		case skSources:
			var src sourcesItem
			if err := attributevalue.UnmarshalMap(item, &src); err != nil {
				return nil, pkgerrors.NewInternalError("failed to unmarshal project sources", err)
			}
			doc.Sources = src.Sources
		case skOutline:
			var outline outlineItem
			if err := attributevalue.UnmarshalMap(item, &outline); err != nil {
				return nil, pkgerrors.NewInternalError("failed to unmarshal project outline", err)
			}
			doc.Sections = outline.Sections
		}
	}

	if !foundMetadata {
		return nil, pkgerrors.NewNotFoundError("project")
	}

	return doc, nil
}

// PutSources replaces the persisted source pool for a project.
func (r *ProjectRepository) PutSources(ctx context.Context, projectID string, sources []research.SourceRecord) error {
	item, err := attributevalue.MarshalMap(sourcesItem{
		PK:        projectPK(projectID),
		SK:        skSources,
		ProjectID: projectID,
		Sources:   sources,
		UpdatedAt: time.Now().Format(time.RFC3339Nano),
	})
	if err != nil {
		return pkgerrors.NewInternalError("failed to marshal sources", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}); err != nil {
		return pkgerrors.NewNetworkError("failed to persist sources", err)
	}

	r.logger.Debug("persisted sources",
		zap.String("projectID", projectID),
		zap.Int("count", len(sources)),
	)
	return nil
}

// PutOutline replaces the persisted outline for a project.
func (r *ProjectRepository) PutOutline(ctx context.Context, projectID string, sections []research.OutlineSection) error {
	item, err := attributevalue.MarshalMap(outlineItem{
		PK:        projectPK(projectID),
		SK:        skOutline,
		ProjectID: projectID,
		Sections:  sections,
		UpdatedAt: time.Now().Format(time.RFC3339Nano),
	})
	if err != nil {
		return pkgerrors.NewInternalError("failed to marshal outline", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}); err != nil {
		return pkgerrors.NewNetworkError("failed to persist outline", err)
	}

	r.logger.Debug("persisted outline",
		zap.String("projectID", projectID),
		zap.Int("sections", len(sections)),
	)
	return nil
}

// CreateProject writes the metadata item for a new project.
func (r *ProjectRepository) CreateProject(ctx context.Context, project research.Project) error {
	item, err := attributevalue.MarshalMap(metadataItem{
		PK:         projectPK(project.ID),
		SK:         skMetadata,
		EntityType: entityProject,
		ProjectID:  project.ID,
		Title:      project.Title,
		CreatedAt:  project.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:  project.UpdatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return pkgerrors.NewInternalError("failed to marshal project", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}); err != nil {
		return pkgerrors.NewNetworkError("failed to create project", err)
	}
	return nil
}

// DeleteProject removes the project partition.
func (r *ProjectRepository) DeleteProject(ctx context.Context, projectID string) error {
	for _, sk := range []string{skMetadata, skSources, skOutline} {
		if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: projectPK(projectID)},
				"SK": &types.AttributeValueMemberS{Value: sk},
			},
		}); err != nil {
			return pkgerrors.NewNetworkError("failed to delete project", err)
		}
	}
	return nil
}

// ListProjects scans for project metadata, most recently updated first.
func (r *ProjectRepository) ListProjects(ctx context.Context) ([]research.Project, error) {
	filter := expression.Name("EntityType").Equal(expression.Value(entityProject))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to build scan expression", err)
	}

	projects := []research.Project{}
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(r.tableName),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, pkgerrors.NewNetworkError("failed to list projects", err)
		}

		for _, item := range out.Items {
			var meta metadataItem
			if err := attributevalue.UnmarshalMap(item, &meta); err != nil {
				continue
			}
			projects = append(projects, research.Project{
				ID:        meta.ProjectID,
				Title:     meta.Title,
				CreatedAt: parseTime(meta.CreatedAt),
				UpdatedAt: parseTime(meta.UpdatedAt),
			})
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].UpdatedAt.After(projects[j].UpdatedAt)
	})
	return projects, nil
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
