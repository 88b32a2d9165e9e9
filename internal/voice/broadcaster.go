package voice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
)

type AudioWriter interface {
	Save(name string, data []byte) error
}

type BroadcastInput struct {
	EmergencyType string
	Department    string
	Announcement  string
}

// Broadcaster 把公告转换为语音，任何失败都只会降级为纯文本
type Broadcaster struct {
	synth  Synthesizer
	store  AudioWriter
	logger *slog.Logger
}

func NewBroadcaster(synth Synthesizer, store AudioWriter, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		synth:  synth,
		store:  store,
		logger: logger,
	}
}

func defaultAnnouncement(emergencyType, department string) string {
	return fmt.Sprintf(
		"Attention all staff. Emergency alert for %s. This is a %s situation. Please check MedRoster for your updated assignment immediately.",
		department, emergencyType,
	)
}

func (b *Broadcaster) Broadcast(ctx context.Context, in BroadcastInput) domain.BroadcastResult {
	text := strings.TrimSpace(in.Announcement)
	if text == "" {
		text = defaultAnnouncement(in.EmergencyType, in.Department)
	}

	result := domain.BroadcastResult{
		Status:             domain.BroadcastTextOnly,
		Transcript:         text,
		AffectedDepartment: in.Department,
	}

	if b.synth == nil || !b.synth.Configured() {
		result.Error = ErrNotConfigured.Error()
		b.logger.Warn("未配置语音合成，仅发送文字广播", "department", in.Department)
		return result
	}

	audio, err := b.synth.Synthesize(ctx, SynthesisRequest{Text: text})
	if err != nil {
		result.Error = err.Error()
		b.logger.Warn("语音合成失败，仅发送文字广播", "department", in.Department, "error", err)
		return result
	}

	filename := AudioFilename(in.Department)
	if err := b.store.Save(filename, audio.Data); err != nil {
		result.Error = err.Error()
		b.logger.Warn("无法保存广播音频，仅发送文字广播", "department", in.Department, "error", err)
		return result
	}

	result.Status = domain.BroadcastVoiceSent
	result.AudioFilename = &filename
	return result
}
