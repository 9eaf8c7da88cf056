package judge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/aeotrack/aeo-workflows/internal/config"
	"github.com/aeotrack/aeo-workflows/internal/models"
)

type openaiJudge struct {
	client *openai.Client
	model  string
}

// NewOpenAIJudge builds the OpenAI-backed judge. Structured outputs pin the
// response to the verdict schema, so parsing never has to strip prose.
func NewOpenAIJudge(cfg *config.Config) Judge {
	client := openai.NewClient(
		option.WithAPIKey(cfg.OpenAIAPIKey),
	)

	return &openaiJudge{
		client: &client,
		model:  cfg.JudgeModel,
	}
}

// VerdictList is the structured output for brand verdicts
type VerdictList struct {
	Verdicts []VerdictItem `json:"verdicts" jsonschema_description:"One verdict per brand"`
}

type VerdictItem struct {
	Brand          string `json:"brand" jsonschema_description:"Brand name exactly as given"`
	Sentiment      string `json:"sentiment" jsonschema:"enum=POSITIVE,enum=NEGATIVE,enum=NEUTRAL"`
	Recommendation string `json:"recommendation" jsonschema:"enum=YES,enum=NO"`
}

// Generate the JSON schema at initialization time
var VerdictListSchema = GenerateSchema[VerdictList]()

func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return schema
}

func (j *openaiJudge) Judge(ctx context.Context, answerText string, brandNames []string) map[string]models.BrandVerdict {
	if answerText == "" || len(brandNames) == 0 {
		return map[string]models.BrandVerdict{}
	}

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "brand_verdicts",
		Description: openai.String("Sentiment and recommendation verdict per brand"),
		Schema:      VerdictListSchema,
		Strict:      openai.Bool(true),
	}

	response, err := j.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You score how an AI-generated answer portrays specific brands."),
			openai.UserMessage(buildPrompt(answerText, brandNames)),
		},
		Model: openai.ChatModel(j.model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
		Temperature: openai.Float(0),
	})
	if err != nil {
		fmt.Printf("[Judge] ⚠️ OpenAI judge call failed: %v\n", err)
		return map[string]models.BrandVerdict{}
	}
	if len(response.Choices) == 0 {
		return map[string]models.BrandVerdict{}
	}

	var list VerdictList
	if err := json.Unmarshal([]byte(response.Choices[0].Message.Content), &list); err != nil {
		return map[string]models.BrandVerdict{}
	}

	// Reuse the defensive normalization so both backends agree on canonical
	// brand keys and verdict values.
	encoded, err := json.Marshal(list.Verdicts)
	if err != nil {
		return map[string]models.BrandVerdict{}
	}
	return ParseVerdicts(string(encoded), brandNames)
}
