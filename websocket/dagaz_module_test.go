package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/aukilabs/hagall-common/messages/dagazpb"
	"github.com/aukilabs/hagall-common/scenario"
	hwebsocket "github.com/aukilabs/hagall-common/websocket"
	"github.com/aukilabs/kenaz/geometry"
	"github.com/aukilabs/kenaz/modules"
	"github.com/aukilabs/kenaz/modules/dagaz"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func newDagazTestModule(t *testing.T) func() modules.Module {
	p, err := dagaz.NewOctreePartition(geometry.NewAABB(geometry.Splat(-100), geometry.Splat(100)), 6)
	require.NoError(t, err)

	m := dagaz.NewModule(p)
	return func() modules.Module {
		return m
	}
}

func groundQuad() dagaz.Quad {
	return dagaz.Quad{
		Center:  geometry.NewVector3(0, 0, 0),
		Extents: geometry.NewVector3(1, 0, 1),
		Normal:  geometry.NewVector3(0, 1, 0),
	}
}

func TestHandleDagazQuadSample(t *testing.T) {
	env := NewTestingEnv(t, newTestHandler(newDagazTestModule(t)))
	defer env.Close()

	clientA := env.Dial()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := scenario.NewScenario(clientA).
		Send(func() hwebsocket.ProtoMsg {
			return &dagazpb.DagazQuadSample{
				Type:      dagazpb.MsgType_MSG_TYPE_DAGAZ_QUAD_SAMPLE,
				Timestamp: timestamppb.Now(),
				Samples:   []*dagazpb.Quad{},
			}
		}).
		Run(ctx)
	require.NoError(t, err)
}

func TestHandleDagazGetGroundPlane(t *testing.T) {
	env := NewTestingEnv(t, newTestHandler(newDagazTestModule(t)))
	defer env.Close()

	clientA := env.Dial()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	quad := groundQuad()
	from := geometry.NewVector3(0, 1, 0)
	to := geometry.NewVector3(0, -1, 0)

	err := scenario.NewScenario(clientA).
		Send(func() hwebsocket.ProtoMsg {
			return &dagazpb.DagazGetGroundPlaneRequest{
				Type:      dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_GROUND_PLANE_REQUEST,
				Timestamp: timestamppb.Now(),
				RequestId: 1,
				Ray: &dagazpb.Ray{
					From: &dagazpb.Point{X: from.X(), Y: from.Y(), Z: from.Z()},
					To:   &dagazpb.Point{X: to.X(), Y: to.Y(), Z: to.Z()},
				},
			}
		}).
		Receive(
			scenario.FilterByType(dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_GROUND_PLANE_RESPONSE),
			func(msg hwebsocket.Msg) error {
				var res dagazpb.DagazGetGroundPlaneResponse
				err := msg.DataTo(&res)
				require.NoError(t, err)

				require.Equal(t, geometry.Vector3{}, dagaz.NewVector3FromProtobuf(res.Ground.Center))
				require.Equal(t, geometry.Vector3{}, dagaz.NewVector3FromProtobuf(res.Ground.Extents))
				return nil
			}).
		Send(func() hwebsocket.ProtoMsg {
			return &dagazpb.DagazQuadSample{
				Type:      dagazpb.MsgType_MSG_TYPE_DAGAZ_QUAD_SAMPLE,
				Timestamp: timestamppb.Now(),
				Samples:   []*dagazpb.Quad{quad.ToProtobuf()},
			}
		}).
		Send(func() hwebsocket.ProtoMsg {
			return &dagazpb.DagazGetGroundPlaneRequest{
				Type:      dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_GROUND_PLANE_REQUEST,
				Timestamp: timestamppb.Now(),
				RequestId: 2,
				Ray: &dagazpb.Ray{
					From: &dagazpb.Point{X: from.X(), Y: from.Y(), Z: from.Z()},
					To:   &dagazpb.Point{X: to.X(), Y: to.Y(), Z: to.Z()},
				},
			}
		}).
		Receive(
			scenario.FilterByType(dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_GROUND_PLANE_RESPONSE),
			func(msg hwebsocket.Msg) error {
				var res dagazpb.DagazGetGroundPlaneResponse
				err := msg.DataTo(&res)
				require.NoError(t, err)

				ground := dagaz.NewQuadFromProtobuf(res.Ground)
				require.Equal(t, quad.Center, ground.Center)
				require.Equal(t, quad.Extents, ground.Extents)
				return nil
			}).
		Run(ctx)
	require.NoError(t, err)
}

func TestHandleDagazGetRegion(t *testing.T) {
	env := NewTestingEnv(t, newTestHandler(newDagazTestModule(t)))
	defer env.Close()

	clientA := env.Dial()
	clientB := env.Dial()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	quad := groundQuad()

	// Samples sent by one client are visible to the others.
	err := scenario.NewScenario(clientA).
		Send(func() hwebsocket.ProtoMsg {
			return &dagazpb.DagazQuadSample{
				Type:      dagazpb.MsgType_MSG_TYPE_DAGAZ_QUAD_SAMPLE,
				Timestamp: timestamppb.Now(),
				Samples:   []*dagazpb.Quad{quad.ToProtobuf()},
			}
		}).
		Send(func() hwebsocket.ProtoMsg {
			return &dagazpb.DagazGetDebugInfoRequest{
				Type:      dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_DEBUG_INFO_REQUEST,
				Timestamp: timestamppb.Now(),
				RequestId: 1,
			}
		}).
		Receive(
			scenario.FilterByType(dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_DEBUG_INFO_RESPONSE),
		).
		Run(ctx)
	require.NoError(t, err)

	err = scenario.NewScenario(clientB).
		Send(func() hwebsocket.ProtoMsg {
			return &dagazpb.DagazGetRegionRequest{
				Type:      dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_REGION_REQUEST,
				Timestamp: timestamppb.Now(),
				RequestId: 2,
				Min:       &dagazpb.Point{X: -10, Y: -10, Z: -10},
				Max:       &dagazpb.Point{X: 10, Y: 10, Z: 10},
			}
		}).
		Receive(
			scenario.FilterByType(dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_REGION_RESPONSE),
			func(msg hwebsocket.Msg) error {
				var res dagazpb.DagazGetRegionResponse
				err := msg.DataTo(&res)
				require.NoError(t, err)
				require.Len(t, res.Quads, 1)

				q := dagaz.NewQuadFromProtobuf(res.Quads[0])
				require.Equal(t, quad.Center, q.Center)
				require.Equal(t, quad.Extents, q.Extents)
				return nil
			}).
		Run(ctx)
	require.NoError(t, err)
}
