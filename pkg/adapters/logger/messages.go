package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Orchestration level messages (info)
		"Recording to %s at %d fps":          "%s に %d fps で録画中",
		"Encoding %dx%d at %d fps, %d bps":   "%dx%d を %d fps, %d bps でエンコード中",
		"Saved %d frames to %s":              "%d フレームを %s に保存しました",
		"Summary written to %s":              "サマリーを %s に出力しました",
		"Interrupted, finishing recording...": "中断されました。録画を確定しています...",

		// Warnings and errors
		"%d frames were dropped":               "%d フレームが破棄されました",
		"%d frames were rejected":              "%d フレームがキュー満杯のため受け付けられませんでした",
		"Frame queue full, frame rejected":     "フレームキューが満杯のため、フレームを拒否しました",
		"Failed to notify: %s":                 "通知に失敗しました: %s",
		"Failed to remove partial output: %s":  "作成途中の出力を削除できませんでした: %s",
		"Failed to write summary: %s":          "サマリーを出力できませんでした: %s",
		"Failed to save debug output: %s":      "デバッグ出力を保存できませんでした: %s",
		"Interrupted again, discarding recording": "再度中断されました。録画を破棄します",
		"Recording failed: %s":                 "録画に失敗しました: %s",
		"Capture failed: %s":                   "キャプチャに失敗しました: %s",
		"Encoder session failed: %v":           "エンコーダセッションが失敗しました: %v",

		// Pipeline component (debug)
		"Session %s":                       "セッション %s",
		"Discarded %d queued frames":       "キュー内の %d フレームを破棄しました",
		"Capture source ended after %d frames": "キャプチャ元が %d フレームで終了しました",

		// Encoder component (debug)
		"Session configured: %dx%d at %d fps, %d bps, %s":           "セッション設定: %dx%d, %d fps, %d bps, %s",
		"Session started with %d input slots and %d output slots": "入力スロット %d, 出力スロット %d でセッションを開始しました",
		"Session draining after %d frames":                          "%d フレーム後にセッションを排出中",
		"Output format: %s %dx%d":                                   "出力形式: %s %dx%d",
		"Started ffmpeg: %s":                                        "ffmpeg を起動しました: %s",
		"Engine close: %v":                                          "エンジン終了: %v",

		// Muxer component (debug)
		"Added stream %s %dx%d":                     "ストリームを追加しました: %s %dx%d",
		"Finalized %s: %d samples in %d fragments": "%s を確定しました: %d サンプル, %d フラグメント",
		"Removed partial output %s":                 "作成途中の出力 %s を削除しました",

		// Notifier component (debug)
		"Sent notification to %s": "%s に通知を送信しました",
	})
}
