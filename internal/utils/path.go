package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

// PathResolver locates config files and persisted indexes relative to the
// executable, the working directory and the user config dir.
type PathResolver struct {
	executableDir string
	homeDir       string
	configDir     string
}

// NewPathResolver creates a new path resolver that determines the executable location
func NewPathResolver() (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}

	// Resolve any symlinks to get the actual binary location
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, err
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executableDir: filepath.Dir(execPath),
		homeDir:       homeDir,
		configDir:     getConfigDir(homeDir),
	}

	log.Debugf("PathResolver initialized: execDir=%s, configDir=%s", pr.executableDir, pr.configDir)
	return pr, nil
}

// getConfigDir returns the appropriate config directory for the platform
func getConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, ".config", "codewords")
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, "codewords")
		}
		return filepath.Join(homeDir, ".config", "codewords")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "codewords")
		}
		return filepath.Join(homeDir, "AppData", "Roaming", "codewords")
	default:
		return filepath.Join(homeDir, ".codewords")
	}
}

// ResolveIndexPath finds a persisted index file. Candidates, in order:
//  1. the path as given (absolute, or relative to the working directory)
//  2. relative to the executable directory
//  3. inside <config dir>/data
//
// When nothing matches the path is returned unchanged so the caller's open
// reports a meaningful error.
func (pr *PathResolver) ResolveIndexPath(userPath string) string {
	candidates := []string{userPath}
	if !filepath.IsAbs(userPath) {
		candidates = append(candidates,
			filepath.Join(pr.executableDir, userPath),
			filepath.Join(pr.configDir, "data", filepath.Base(userPath)),
		)
	}

	for _, path := range candidates {
		if isRegularFile(path) {
			log.Debugf("Found index file: %s", path)
			return path
		}
		log.Debugf("Index candidate not valid: %s", path)
	}
	return userPath
}

func isRegularFile(path string) bool {
	stat, err := os.Stat(path)
	return err == nil && stat.Mode().IsRegular()
}
