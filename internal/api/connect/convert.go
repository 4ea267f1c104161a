package connect

import (
	"github.com/samber/lo"

	"github.com/osa030/moodbox/internal/api/playerv1"
	"github.com/osa030/moodbox/internal/app/store"
	"github.com/osa030/moodbox/internal/domain/track"
)

func toTrackInfo(t track.Track) *playerv1.TrackInfo {
	return &playerv1.TrackInfo{
		Author:       t.Author,
		Title:        t.Title,
		Thumbnail:    t.Thumbnail,
		ThumbnailHue: t.ThumbnailHue,
		MusicValue: playerv1.MusicValue{
			Emotion: t.MusicValue.Emotion,
			Energy:  t.MusicValue.Energy,
		},
	}
}

func toPlaylistInfo(title string, tracks []track.Track, withTracks bool) *playerv1.PlaylistInfo {
	info := &playerv1.PlaylistInfo{
		Title:      title,
		TrackCount: len(tracks),
	}
	if withTracks {
		info.Tracks = lo.Map(tracks, func(t track.Track, _ int) *playerv1.TrackInfo {
			return toTrackInfo(t)
		})
	}
	return info
}

func toPlayerState(s store.State) *playerv1.PlayerState {
	ps := &playerv1.PlayerState{
		Version:         s.Version,
		RefreshTrigger:  s.RefreshTrigger,
		CurrentPlaylist: s.CurrentPlaylist,
		CurrentMusic:    s.CurrentMusic,
		Playlists:       s.Titles(),
	}
	if t, ok := s.CurrentTrack(); ok {
		ps.CurrentTrack = toTrackInfo(t)
	}
	return ps
}
