// Package gemini speaks the Gemini Live (BidiGenerateContent) websocket
// protocol and exposes it through the realtime connector contract.
package gemini

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/vaultvoice/vaultvoice/pkg/realtime"
)

// Client frames. Every outbound message wraps exactly one payload field.

type setupMessage struct {
	Setup setupPayload `json:"setup"`
}

type setupPayload struct {
	Model                    string            `json:"model"`
	GenerationConfig         *generationConfig `json:"generationConfig,omitempty"`
	SystemInstruction        *contentPayload   `json:"systemInstruction,omitempty"`
	Tools                    []toolPayload     `json:"tools,omitempty"`
	InputAudioTranscription  *struct{}         `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}         `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig *voiceConfig `json:"voiceConfig,omitempty"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig *prebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type contentPayload struct {
	Role  string        `json:"role,omitempty"`
	Parts []partPayload `json:"parts,omitempty"`
}

type partPayload struct {
	Text       string       `json:"text,omitempty"`
	InlineData *blobPayload `json:"inlineData,omitempty"`
}

type blobPayload struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type toolPayload struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations,omitempty"`
}

type functionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInputPayload `json:"realtimeInput"`
}

type realtimeInputPayload struct {
	MediaChunks []blobPayload `json:"mediaChunks"`
}

type toolResponseMessage struct {
	ToolResponse toolResponsePayload `json:"toolResponse"`
}

type toolResponsePayload struct {
	FunctionResponses []functionResponse `json:"functionResponses"`
}

type functionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// Server frames. Inbound messages carry exactly one of these fields set.

type serverFrame struct {
	SetupComplete        *struct{}             `json:"setupComplete,omitempty"`
	ServerContent        *serverContent        `json:"serverContent,omitempty"`
	ToolCall             *serverToolCall       `json:"toolCall,omitempty"`
	ToolCallCancellation *toolCallCancellation `json:"toolCallCancellation,omitempty"`
	UsageMetadata        *usageMetadata        `json:"usageMetadata,omitempty"`
	GoAway               *goAway               `json:"goAway,omitempty"`
}

type serverContent struct {
	ModelTurn           *contentPayload `json:"modelTurn,omitempty"`
	TurnComplete        bool            `json:"turnComplete,omitempty"`
	Interrupted         bool            `json:"interrupted,omitempty"`
	InputTranscription  *transcription  `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription  `json:"outputTranscription,omitempty"`
}

type transcription struct {
	Text string `json:"text"`
}

type serverToolCall struct {
	FunctionCalls []functionCall `json:"functionCalls"`
}

type functionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type toolCallCancellation struct {
	IDs []string `json:"ids,omitempty"`
}

type usageMetadata struct {
	PromptTokenCount   int `json:"promptTokenCount,omitempty"`
	ResponseTokenCount int `json:"responseTokenCount,omitempty"`
	TotalTokenCount    int `json:"totalTokenCount,omitempty"`
}

type goAway struct {
	TimeLeft string `json:"timeLeft,omitempty"`
}

func buildSetup(cfg realtime.ConnectConfig) setupMessage {
	model := cfg.Model
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	payload := setupPayload{
		Model: model,
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
		},
	}
	if cfg.Voice != "" {
		payload.GenerationConfig.SpeechConfig = &speechConfig{
			VoiceConfig: &voiceConfig{
				PrebuiltVoiceConfig: &prebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}
	if instruction := strings.TrimSpace(cfg.SystemInstruction); instruction != "" {
		payload.SystemInstruction = &contentPayload{
			Parts: []partPayload{{Text: instruction}},
		}
	}
	if len(cfg.Tools) > 0 {
		declarations := make([]functionDeclaration, 0, len(cfg.Tools))
		for _, tool := range cfg.Tools {
			declarations = append(declarations, functionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			})
		}
		payload.Tools = []toolPayload{{FunctionDeclarations: declarations}}
	}
	if cfg.InputTranscription {
		payload.InputAudioTranscription = &struct{}{}
	}
	if cfg.OutputTranscription {
		payload.OutputAudioTranscription = &struct{}{}
	}
	return setupMessage{Setup: payload}
}

// toServerMessage flattens one wire frame into the connector-neutral shape.
// Frames that carry nothing a session cares about return ok=false.
func toServerMessage(frame serverFrame) (realtime.ServerMessage, bool, error) {
	var msg realtime.ServerMessage
	ok := false

	if frame.UsageMetadata != nil {
		msg.Usage = &realtime.Usage{
			PromptTokens:   frame.UsageMetadata.PromptTokenCount,
			ResponseTokens: frame.UsageMetadata.ResponseTokenCount,
			TotalTokens:    frame.UsageMetadata.TotalTokenCount,
		}
		ok = true
	}

	if sc := frame.ServerContent; sc != nil {
		if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
			msg.InputTranscript = sc.InputTranscription.Text
			ok = true
		}
		if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
			msg.OutputTranscript = sc.OutputTranscription.Text
			ok = true
		}
		if sc.TurnComplete {
			msg.TurnComplete = true
			ok = true
		}
		if sc.Interrupted {
			msg.Interrupted = true
			ok = true
		}
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part.InlineData == nil || part.InlineData.Data == "" {
					continue
				}
				pcm, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if err != nil {
					return realtime.ServerMessage{}, false, fmt.Errorf("decode inline audio: %w", err)
				}
				msg.Audio = append(msg.Audio, realtime.AudioChunk{
					Data:     pcm,
					MIMEType: part.InlineData.MIMEType,
				})
				ok = true
			}
		}
	}

	if frame.ToolCall != nil {
		for _, call := range frame.ToolCall.FunctionCalls {
			msg.ToolCalls = append(msg.ToolCalls, realtime.ToolCall{
				ID:   call.ID,
				Name: call.Name,
				Args: call.Args,
			})
			ok = true
		}
	}

	return msg, ok, nil
}
