// Package main provides localization for the framerec CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Output":            "出力先",
		"Source":            "キャプチャ元",
		"Video and Quality": "動画と品質",
		"Pipeline":          "パイプライン",
		"Logging":           "ログ",
		"Debug":             "デバッグ",

		// Root command
		"Record raw frames into H.264 MP4 files": "生フレームをH.264のMP4ファイルに記録",
		"framerec encodes frames from a capture source into a fragmented MP4 file and finalizes it when the capture stops.": "framerecはキャプチャ元のフレームをフラグメント化MP4ファイルにエンコードし、キャプチャ終了時にファイルを確定します。",

		// Record command
		"Record frames from a capture source as MP4 video": "キャプチャ元のフレームをMP4動画として記録",
		"Capture frames from the selected source and encode them into an MP4 file. Press Ctrl-C to stop the capture; the file is still finalized.": "選択したキャプチャ元からフレームを取得し、MP4ファイルにエンコードします。Ctrl-Cでキャプチャを停止しても、ファイルは確定されます。",

		// Output flags
		"YAML configuration file": "YAML設定ファイル",
		"Output MP4 file path (default: video_<millis>.mp4)": "出力MP4ファイルパス（デフォルト: video_<ミリ秒>.mp4）",
		"Directory for the default output name":              "デフォルト出力名を置くディレクトリ",
		"Send SAVED:<path> to this UDP address when done":    "完了時にこのUDPアドレスへ SAVED:<パス> を送信",
		"Write a Markdown summary to this file":              "Markdownのサマリーをこのファイルに出力",

		// Source flags
		"Capture source (synthetic, dir, raw)":                    "キャプチャ元（synthetic, dir, raw）",
		"Image directory, or raw frame file (- for stdin)":        "画像ディレクトリ、または生フレームファイル（- で標準入力）",
		"Frame width in pixels (even)":                            "フレームの幅（ピクセル、偶数）",
		"Frame height in pixels (even)":                           "フレームの高さ（ピクセル、偶数）",
		"Number of frames to capture (0 = until the source ends)": "キャプチャするフレーム数（0 = キャプチャ元の終わりまで）",
		"Raw pixel format (rgb24, rgba, bgra)":                    "生フレームのピクセル形式（rgb24, rgba, bgra）",
		"Pace the capture at the frame rate":                      "フレームレートに合わせてキャプチャする",

		// Video flags
		"Frame rate (default: 30)":                             "フレームレート（デフォルト: 30）",
		"Target bitrate in bits per second (default: 2000000)": "目標ビットレート（bps、デフォルト: 2000000）",
		"Chroma layout fed to the encoder (yuv420p, nv12)":     "エンコーダに渡す色差レイアウト（yuv420p, nv12）",
		"Seconds between key frames (default: 1)":              "キーフレーム間隔（秒、デフォルト: 1）",
		"Path to the ffmpeg executable":                        "ffmpeg実行ファイルのパス",

		// Pipeline flags
		"Frames buffered between capture and encoder (default: 64)":     "キャプチャとエンコーダの間にバッファするフレーム数（デフォルト: 64）",
		"What to do when the queue is full (backpressure, drop-oldest)": "キューが満杯のときの動作（backpressure, drop-oldest）",

		// Debug flags
		"Save captured frames and the result for inspection": "キャプチャしたフレームと結果を確認用に保存",
		"Directory for debug output":                         "デバッグ出力用ディレクトリ",
		"Save every n-th captured frame":                     "n フレームごとにキャプチャ画像を保存",

		// Logging flags
		"Log level (debug, info, warn, error)": "ログレベル（debug, info, warn, error）",
		"Suppress all log output":              "すべてのログ出力を抑制",

		// Record results
		"Recording failed: %s": "録画に失敗しました: %s",
		"Capture failed: %s":   "キャプチャに失敗しました: %s",

		// Failure reasons
		"No frames recorded": "フレームが記録されていません",
		"Frame size is not supported (width and height must be even)": "フレームサイズに対応していません（幅と高さは偶数である必要があります）",
		"Frame pixel format is not supported":                         "フレームのピクセル形式に対応していません",
		"Encoder could not be configured":                             "エンコーダを設定できませんでした",
		"Encoder changed its output format mid-recording":             "録画中にエンコーダの出力形式が変わりました",
		"Encoder produced out-of-order samples":                       "エンコーダが順序の乱れたサンプルを出力しました",
		"Video file was never started":                                "動画ファイルが開始されませんでした",
		"Encoder failed":                                              "エンコーダが失敗しました",
		"Recording failed":                                            "録画に失敗しました",

		// Inspect command
		"Show the video track of an MP4 file":                         "MP4ファイルの映像トラックを表示",
		"List every sample":                                           "すべてのサンプルを一覧表示",
		"Decode with ffmpeg and print the average luma of each frame": "ffmpegでデコードし、各フレームの平均輝度を表示",
		"An MP4 file is required":                                     "MP4ファイルを指定してください",
		"progressive":                                                 "プログレッシブ",
		"%d fragments":                                                "%d フラグメント",
		"File:       %s":                                              "ファイル:     %s",
		"Codec:      %s (%s)":                                         "コーデック:   %s (%s)",
		"Size:       %dx%d":                                           "サイズ:       %dx%d",
		"Layout:     %s":                                              "構造:         %s",
		"Samples:    %d (%d key frames)":                              "サンプル:     %d（キーフレーム %d）",
		"Duration:   %.3f s":                                          "長さ:         %.3f 秒",

		// Version command
		"Show version information": "バージョン情報を表示",
		"framerec version %s":      "framerec バージョン %s",

		// Summary labels
		"Recording Summary":  "録画サマリー",
		"Status":             "状態",
		"Saved":              "保存済み",
		"Failed":             "失敗",
		"Reason":             "理由",
		"Error":              "エラー",
		"Session":            "セッション",
		"Video":              "動画",
		"Item":               "項目",
		"Value":              "値",
		"Codec":              "コーデック",
		"Resolution":         "解像度",
		"Duration":           "長さ",
		"File Size":          "ファイルサイズ",
		"Frames":             "フレーム",
		"Encoded":            "エンコード済み",
		"Samples":            "サンプル",
		"Key Frames":         "キーフレーム",
		"Dropped":            "破棄",
		"Rejected":           "拒否",
		"Elapsed":            "所要時間",
		"Settings":           "設定",
		"Frame Rate":         "フレームレート",
		"Bitrate":            "ビットレート",
		"Chroma Layout":      "色差レイアウト",
		"Key Frame Interval": "キーフレーム間隔",
		"Queue Size":         "キューサイズ",
		"Drop Policy":        "破棄ポリシー",
		"Generated at":       "生成日時",
	})
}
