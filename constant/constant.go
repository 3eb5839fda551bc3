package constant

type JobStatus string

const (
	JobStatusUploading            JobStatus = "uploading"
	JobStatusExtracting           JobStatus = "extracting"
	JobStatusGeneratingTranscript JobStatus = "generating_transcript"
	JobStatusRefiningTranscript   JobStatus = "refining_transcript"
	JobStatusSynthesizingAudio    JobStatus = "synthesizing_audio"
	JobStatusEmbeddingAudio       JobStatus = "embedding_audio"
	JobStatusConvertingPDF        JobStatus = "converting_pdf"
	JobStatusRenderingVideo       JobStatus = "rendering_video"
	JobStatusCompleted            JobStatus = "completed"
	JobStatusError                JobStatus = "error"
)

// stageOrder fixes the pipeline position of every status. Error sits outside
// the pipeline and is reachable from any non-terminal status.
var stageOrder = map[JobStatus]int{
	JobStatusUploading:            0,
	JobStatusExtracting:           1,
	JobStatusGeneratingTranscript: 2,
	JobStatusRefiningTranscript:   3,
	JobStatusSynthesizingAudio:    4,
	JobStatusEmbeddingAudio:       5,
	JobStatusConvertingPDF:        6,
	JobStatusRenderingVideo:       7,
	JobStatusCompleted:            8,
}

func (s JobStatus) IsValid() bool {
	if s == JobStatusError {
		return true
	}
	_, ok := stageOrder[s]
	return ok
}

// IsTerminal reports whether no further transitions may follow this status.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// CanTransition reports whether a status change is legal. Repeated reports of
// the current status are legal so workers may resend progress for the same
// stage. Terminal statuses are sticky and pipeline stages only move forward.
func CanTransition(from, to JobStatus) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if from == to {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	if to == JobStatusError {
		return true
	}
	return stageOrder[to] > stageOrder[from]
}

func (s JobStatus) String() string {
	return string(s)
}

type TTSProvider string

const (
	TTSProviderOpenAI     TTSProvider = "openai"
	TTSProviderGoogle     TTSProvider = "google"
	TTSProviderElevenLabs TTSProvider = "elevenlabs"
)

func (p TTSProvider) IsValid() bool {
	switch p {
	case TTSProviderOpenAI, TTSProviderGoogle, TTSProviderElevenLabs:
		return true
	}
	return false
}

type OutputKind string

const (
	OutputKindNarratedPPTX    OutputKind = "narrated_pptx"
	OutputKindVideoMP4        OutputKind = "video_mp4"
	OutputKindPDF             OutputKind = "pdf"
	OutputKindTranscriptsJSON OutputKind = "transcripts_json"
	OutputKindAudioZip        OutputKind = "audio_zip"
)

func (k OutputKind) IsValid() bool {
	switch k {
	case OutputKindNarratedPPTX, OutputKindVideoMP4, OutputKindPDF, OutputKindTranscriptsJSON, OutputKindAudioZip:
		return true
	}
	return false
}

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}
