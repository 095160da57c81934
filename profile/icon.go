package profile

import (
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
)

const (
	iconFile = "server_icon.png"
	iconSize = 32
)

// Icon returns the profile's 32×32 icon, or nil.  The file is read at most
// once; a missing, unreadable or wrongly sized image yields nil.
func (c *Configuration) Icon() image.Image {
	c.iconMu.Lock()
	defer c.iconMu.Unlock()
	if !c.iconChecked {
		c.iconChecked = true
		c.icon = c.readIcon()
	}
	return c.icon
}

// LoadIconFrom uses r as the icon when the profile has no server_icon.png of
// its own.  Bundled icons are not held to the size rule.
func (c *Configuration) LoadIconFrom(r io.Reader) {
	c.iconMu.Lock()
	defer c.iconMu.Unlock()

	if path, ok := c.iconPath(); ok {
		if _, err := os.Stat(path); err == nil {
			c.iconChecked = true
			c.icon = c.readIcon()
			return
		}
	}
	img, err := png.Decode(r)
	if err != nil {
		c.logger().Warnw("failed to decode bundled icon", "err", err)
		return
	}
	c.iconChecked = true
	c.icon = img
}

func (c *Configuration) iconPath() (string, bool) {
	dir, err := c.MinecraftDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(dir, iconFile), true
}

func (c *Configuration) readIcon() image.Image {
	path, ok := c.iconPath()
	if !ok {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		c.logger().Warnw("failed to load icon", "path", path, "err", err)
		return nil
	}
	b := img.Bounds()
	if b.Dx() != iconSize || b.Dy() != iconSize {
		return nil
	}
	return img
}
