package system

import (
	"errors"
	log "log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"marvin/internal/capability"
)

type desktopEntry struct {
	Name string
	Exec []string
	Path string
}

func (s *Service) OpenCalculator() capability.Result {
	return s.OpenApplication("calculadora")
}

// OpenApplication starts a configured application or, failing that, the
// first desktop entry whose name or command contains name.
func (s *Service) OpenApplication(name string) capability.Result {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return capability.Errorf("Nenhum aplicativo informado.")
	}

	argv, label := s.resolve(key)
	if argv == nil {
		if _, configured := s.apps[key]; configured {
			return capability.Errorf("'%s' está configurado, mas não para o seu sistema (%s).", name, runtime.GOOS)
		}
		return capability.Errorf("Não sei como abrir '%s' no sistema %s.", name, runtime.GOOS)
	}

	log.Info("Opening application", "name", name, "argv", argv)
	if err := s.start(argv); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return capability.Errorf("Comando '%s' para '%s' não encontrado. Verifique a instalação.", argv[0], name)
		}
		return capability.Fail(err, "Erro ao abrir '"+name+"'")
	}
	return capability.Success("Abrindo '%s'.", label)
}

func (s *Service) resolve(key string) ([]string, string) {
	if app, ok := s.apps[key]; ok {
		if argv := app.Command(); len(argv) > 0 {
			return argv, key
		}
		return nil, ""
	}
	for _, e := range s.lookup(key) {
		if len(e.Exec) > 0 {
			return e.Exec, e.Name
		}
	}
	return nil, ""
}

func startDetached(argv []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

var desktopDirs = []string{
	"/usr/share/applications",
	"$HOME/.local/share/applications",
	"/var/lib/flatpak/exports/share/applications",
	"$HOME/.local/share/flatpak/exports/share/applications",
	"/var/lib/snapd/desktop/applications",
	"/usr/local/share/applications",
}

// findDesktopEntries scans the XDG application directories. It finds
// nothing outside Linux.
func findDesktopEntries(name string) []desktopEntry {
	if runtime.GOOS != "linux" {
		return nil
	}

	var res []desktopEntry
	for _, d := range desktopDirs {
		dir := os.ExpandEnv(d)
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if !strings.HasSuffix(f.Name(), ".desktop") {
				continue
			}
			path := filepath.Join(dir, f.Name())
			content, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			if e, ok := parseDesktopEntry(string(content)); ok && e.matches(name) {
				e.Path = path
				res = append(res, e)
			}
		}
	}
	return res
}

func parseDesktopEntry(content string) (desktopEntry, bool) {
	var (
		e       desktopEntry
		generic string
		hidden  bool
	)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		// only the main group; actions come later in the file
		if strings.HasPrefix(line, "[") && line != "[Desktop Entry]" {
			break
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "Name":
			e.Name = value
		case "GenericName":
			generic = value
		case "Exec":
			// drop field codes like %U and %F
			for _, arg := range strings.Fields(value) {
				if !strings.HasPrefix(arg, "%") {
					e.Exec = append(e.Exec, arg)
				}
			}
		case "NoDisplay", "Hidden":
			hidden = hidden || value == "true"
		}
	}
	if e.Name == "" {
		e.Name = generic
	}
	return e, e.Name != "" && len(e.Exec) > 0 && !hidden
}

func (e desktopEntry) matches(name string) bool {
	if strings.Contains(strings.ToLower(e.Name), name) {
		return true
	}
	return len(e.Exec) > 0 && strings.Contains(strings.ToLower(filepath.Base(e.Exec[0])), name)
}
