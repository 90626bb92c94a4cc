// Package fileutil は出力ファイルを原子的に書き込むためのヘルパーです。
// 途中で失敗した場合でも、書きかけのファイルが最終パスに残ることはありません。
package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFile は data を一時ファイルに書き込み、同じディレクトリ内でリネームします。
func WriteFile(path string, data []byte, perm os.FileMode) error {
	return Write(path, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// Write は fn が書き込んだ内容を path に原子的に配置します。
// fn がエラーを返した場合、一時ファイルは削除され path は変更されません。
func Write(path string, perm os.FileMode, fn func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("出力ディレクトリの作成に失敗しました (%s): %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗しました (%s): %w", dir, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = fn(tmp); err != nil {
		return err
	}
	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("ファイル権限の設定に失敗しました (%s): %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("ファイルのフラッシュに失敗しました (%s): %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("ファイルのクローズに失敗しました (%s): %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("ファイルのリネームに失敗しました (%s): %w", path, err)
	}
	return nil
}

// TempPath は path と同じディレクトリに置く作業用ファイル名を返します。拡張子は保持します。
func TempPath(path string) string {
	ext := filepath.Ext(path)
	base := filepath.Base(path)
	return filepath.Join(filepath.Dir(path), "."+base[:len(base)-len(ext)]+".partial"+ext)
}
