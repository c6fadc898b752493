package templates

var desktopEnv = map[string]string{
	"PUID": "1000",
	"PGID": "1000",
	"TZ":   "Etc/UTC",
}

var desktopResources = Resources{CPU: "2", Memory: "4GB", Storage: "20GB"}

// Defaults returns the built-in template set.
func Defaults() []Template {
	return []Template{
		{
			ID:            "ubuntu-desktop",
			Name:          "Ubuntu Desktop (XFCE)",
			Image:         "lscr.io/linuxserver/webtop:ubuntu-xfce",
			Ports:         []int{3000},
			Env:           desktopEnv,
			Volumes:       []Volume{{Source: "config", Target: "/config"}},
			AccessURL:     "http://localhost:{port}",
			CanonicalName: "hypedesk-ubuntu-desktop",
			Resources:     desktopResources,
		},
		{
			ID:            "alpine-desktop",
			Name:          "Alpine Desktop (XFCE)",
			Image:         "lscr.io/linuxserver/webtop:alpine-xfce",
			Ports:         []int{3001},
			Env:           desktopEnv,
			Volumes:       []Volume{{Source: "config", Target: "/config"}},
			AccessURL:     "https://localhost:{port}",
			CanonicalName: "hypedesk-alpine-desktop",
			Resources:     Resources{CPU: "1", Memory: "2GB", Storage: "10GB"},
		},
		{
			ID:            "debian-desktop",
			Name:          "Debian Desktop (KDE)",
			Image:         "lscr.io/linuxserver/webtop:debian-kde",
			Ports:         []int{3000},
			Env:           desktopEnv,
			Volumes:       []Volume{{Source: "config", Target: "/config"}},
			AccessURL:     "http://localhost:{port}",
			CanonicalName: "hypedesk-debian-desktop",
			Resources:     desktopResources,
		},
	}
}

// DefaultCatalog returns the catalog built from Defaults.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(Defaults())
	if err != nil {
		panic("templates: invalid built-in catalog: " + err.Error())
	}
	return c
}
