package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"mclauncher/nbt"
)

const serversFile = "servers.dat"

// ServersPath is the location of the profile's multiplayer server list.
func (c *Configuration) ServersPath() (string, error) {
	dir, err := c.MinecraftDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, serversFile), nil
}

// MPServers reads the profile's servers.dat into name → address.  A missing
// file yields an empty map and no error.  A file of the wrong shape yields an
// empty map and an error wrapping nbt.ErrShape.
func (c *Configuration) MPServers() (map[string]string, error) {
	out := make(map[string]string)
	path, err := c.ServersPath()
	if err != nil {
		return out, err
	}
	_, root, err := nbt.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out, nil
		}
		return out, fmt.Errorf("failed to read %s: %w", serversFile, err)
	}
	servers, err := decodeServers(root)
	if err != nil {
		return make(map[string]string), fmt.Errorf("failed to parse %s: %w", serversFile, err)
	}
	return servers, nil
}

func decodeServers(root nbt.Tag) (map[string]string, error) {
	rc, err := nbt.AsCompound("root", root)
	if err != nil {
		return nil, err
	}
	list, err := rc.List("servers")
	if err != nil {
		return nil, err
	}
	entries, err := list.Compounds("servers")
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		name, err := e.String("name")
		if err != nil {
			return nil, err
		}
		ip, err := e.String("ip")
		if err != nil {
			return nil, err
		}
		out[name] = ip
	}
	return out, nil
}

// WriteServers replaces the profile's servers.dat with the given entries,
// ordered by name.
func (c *Configuration) WriteServers(servers map[string]string) error {
	path, err := c.ServersPath()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(servers))
	for n := range servers {
		names = append(names, n)
	}
	sort.Strings(names)

	items := make([]nbt.Tag, 0, len(names))
	for _, n := range names {
		items = append(items, nbt.Compound{
			"name": nbt.String(n),
			"ip":   nbt.String(servers[n]),
		})
	}
	root := nbt.Compound{"servers": &nbt.List{Elem: nbt.TagCompound, Items: items}}
	if err := nbt.WriteFile(path, "", root); err != nil {
		return fmt.Errorf("failed to write %s: %w", serversFile, err)
	}
	return nil
}
