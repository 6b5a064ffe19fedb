package summarizer

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders a Summary as a Markdown report.
type MarkdownFormatter struct {
	translate func(string) string
	version   string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator translates labels, for example with l10n.T.
func WithTranslator(fn func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.translate = fn
	}
}

// WithVersion adds the program version to the footer.
func WithVersion(version string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = version
	}
}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{
		translate: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements the Formatter interface.
func (f *MarkdownFormatter) Format(s *Summary) string {
	t := f.translate
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", t("Recording Summary"))

	status := t("Saved")
	if !s.Outcome.OK {
		status = t("Failed")
	}
	sb.WriteString(row(t("Status"), status))
	if s.Outcome.Reason != "" {
		sb.WriteString(row(t("Reason"), s.Outcome.Reason))
	}
	if s.Outcome.Error != "" {
		sb.WriteString(row(t("Error"), "`"+s.Outcome.Error+"`"))
	}
	if s.Video.Path != "" {
		sb.WriteString(row(t("Output"), "`"+s.Video.Path+"`"))
	}
	if s.SessionID != "" {
		sb.WriteString(row(t("Session"), s.SessionID))
	}
	sb.WriteString("\n")

	if s.Outcome.OK {
		fmt.Fprintf(&sb, "## %s\n\n", t("Video"))
		sb.WriteString(table(t("Item"), t("Value")))
		sb.WriteString(cell(t("Codec"), s.Video.CodecString))
		sb.WriteString(cell(t("Resolution"), fmt.Sprintf("%dx%d", s.Video.Width, s.Video.Height)))
		sb.WriteString(cell(t("Duration"), fmt.Sprintf("%d ms", s.Video.DurationMs)))
		sb.WriteString(cell(t("File Size"), formatBytes(s.Video.FileSize)))
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "## %s\n\n", t("Frames"))
	sb.WriteString(table(t("Item"), t("Value")))
	sb.WriteString(cell(t("Encoded"), fmt.Sprint(s.Frames.Encoded)))
	sb.WriteString(cell(t("Samples"), fmt.Sprint(s.Frames.Samples)))
	sb.WriteString(cell(t("Key Frames"), fmt.Sprint(s.Frames.KeyFrames)))
	sb.WriteString(cell(t("Dropped"), fmt.Sprint(s.Frames.Dropped)))
	sb.WriteString(cell(t("Rejected"), fmt.Sprint(s.Frames.Rejected)))
	sb.WriteString(cell(t("Elapsed"), fmt.Sprintf("%d ms", s.Outcome.ElapsedMs)))
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "## %s\n\n", t("Settings"))
	sb.WriteString(table(t("Item"), t("Value")))
	if s.Settings.Source != "" {
		sb.WriteString(cell(t("Source"), s.Settings.Source))
	}
	sb.WriteString(cell(t("Frame Rate"), fmt.Sprintf("%d fps", s.Settings.FPS)))
	sb.WriteString(cell(t("Bitrate"), formatBitrate(s.Settings.Bitrate)))
	if s.Settings.Codec != "" {
		sb.WriteString(cell(t("Codec"), s.Settings.Codec))
	}
	if s.Settings.Layout != "" {
		sb.WriteString(cell(t("Chroma Layout"), s.Settings.Layout))
	}
	if s.Settings.KeyFrameInterval > 0 {
		sb.WriteString(cell(t("Key Frame Interval"), s.Settings.KeyFrameInterval.String()))
	}
	if s.Settings.QueueSize > 0 {
		sb.WriteString(cell(t("Queue Size"), fmt.Sprint(s.Settings.QueueSize)))
	}
	if s.Settings.DropPolicy != "" {
		sb.WriteString(cell(t("Drop Policy"), s.Settings.DropPolicy))
	}
	sb.WriteString("\n")

	sb.WriteString("---\n\n")
	footer := fmt.Sprintf("%s %s", t("Generated at"), s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	if f.version != "" {
		footer += fmt.Sprintf(" (framerec %s)", f.version)
	}
	sb.WriteString(footer + "\n")

	return sb.String()
}

var _ Formatter = (*MarkdownFormatter)(nil)

func row(label, value string) string {
	return fmt.Sprintf("- **%s**: %s\n", label, value)
}

func table(left, right string) string {
	return fmt.Sprintf("| %s | %s |\n|---|---|\n", left, right)
}

func cell(label, value string) string {
	return fmt.Sprintf("| %s | %s |\n", label, value)
}

func formatBytes(n int64) string {
	const unit = 1024
	switch {
	case n < unit:
		return fmt.Sprintf("%d B", n)
	case n < unit*unit:
		return fmt.Sprintf("%.2f KB", float64(n)/unit)
	case n < unit*unit*unit:
		return fmt.Sprintf("%.2f MB", float64(n)/(unit*unit))
	default:
		return fmt.Sprintf("%.2f GB", float64(n)/(unit*unit*unit))
	}
}

func formatBitrate(bps int) string {
	switch {
	case bps >= 1_000_000:
		return fmt.Sprintf("%.1f Mbps", float64(bps)/1_000_000)
	case bps >= 1_000:
		return fmt.Sprintf("%d kbps", bps/1_000)
	default:
		return fmt.Sprintf("%d bps", bps)
	}
}
